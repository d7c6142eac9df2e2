package output

// JSON payloads shared by commands.

// FetchInfo is one dataset outcome in fetch/run JSON output.
type FetchInfo struct {
	Dataset    string `json:"dataset"`
	URL        string `json:"url"`
	File       string `json:"file"`
	Bytes      int64  `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// FetchSummary aggregates a fetch run.
type FetchSummary struct {
	Total  int `json:"total"`
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}

// FetchOutput is the JSON output of the fetch command.
type FetchOutput struct {
	Fetches []FetchInfo  `json:"fetches"`
	Summary FetchSummary `json:"summary"`
}

// DatasetInfo is one manifest entry in list JSON output.
type DatasetInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	File     string `json:"file"`
	URL      string `json:"url"`
	Present  bool   `json:"present"`
	Bytes    int64  `json:"bytes,omitempty"`
}

// ListOutput is the JSON output of the list command.
type ListOutput struct {
	DataDir  string        `json:"data_dir"`
	Datasets []DatasetInfo `json:"datasets"`
}

// CheckInfo is one doctor check result.
type CheckInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "pass", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

// DoctorOutput is the JSON output of the doctor command.
type DoctorOutput struct {
	Checks []CheckInfo `json:"checks"`
}
