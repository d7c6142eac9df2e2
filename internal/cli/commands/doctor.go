package commands

import (
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datalift-labs/stats19/internal/cli/output"
	"github.com/datalift-labs/stats19/internal/convert"
	"github.com/datalift-labs/stats19/internal/journal"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run the pipeline",
		Long: `Check the pieces the pipeline depends on: a writable data directory, a
working journal, the built-in DuckDB engine, and - when the external
engine is configured - the conversion program and its runtime packages.

The command exits non-zero if any check fails.`,
		Example: `  # Run all checks
  stats19 doctor

  # Machine-readable report
  stats19 doctor --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}

	return cmd
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	var checks []output.CheckInfo

	checks = append(checks, checkDataDir(cfg.DataDir))
	checks = append(checks, checkJournal(cfg.JournalPath))
	checks = append(checks, checkDuckDB())

	if cfg.Converter.Engine == convert.EngineExternal {
		command := cfg.Converter.Command
		if command == "" {
			command = convert.DefaultCommand[0]
		}
		checks = append(checks, checkCommand(command))

		packages := cfg.Converter.Packages
		if packages == nil {
			packages = convert.DefaultPackages
		}
		checks = append(checks, checkPythonPackages(packages))
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(output.DoctorOutput{Checks: checks}); err != nil {
			return err
		}
	} else {
		r.Header(1, "Environment checks")
		failed := 0
		for _, c := range checks {
			status := c.Status
			switch c.Status {
			case "pass":
				status = "success"
			case "fail":
				status = "failed"
				failed++
			}
			r.StatusLine(c.Name, status, c.Detail)
		}
		r.Println("")
		if failed == 0 {
			r.Success("All checks passed")
		}
	}

	for _, c := range checks {
		if c.Status == "fail" {
			return fmt.Errorf("environment check failed: %s", c.Name)
		}
	}
	return nil
}

// checkDataDir verifies the data root exists (or can be created) and is
// writable.
func checkDataDir(dir string) output.CheckInfo {
	check := output.CheckInfo{Name: "data directory", Status: "pass", Detail: dir}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		check.Status = "fail"
		check.Detail = err.Error()
		return check
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		check.Status = "fail"
		check.Detail = fmt.Sprintf("not writable: %v", err)
		return check
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return check
}

// checkJournal verifies the journal database opens.
func checkJournal(path string) output.CheckInfo {
	check := output.CheckInfo{Name: "fetch journal", Status: "pass", Detail: path}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			check.Status = "fail"
			check.Detail = err.Error()
			return check
		}
	}

	j, err := journal.Open(path)
	if err != nil {
		check.Status = "fail"
		check.Detail = err.Error()
		return check
	}
	_ = j.Close()

	return check
}

// checkDuckDB verifies the built-in engine opens an in-memory database.
func checkDuckDB() output.CheckInfo {
	check := output.CheckInfo{Name: "duckdb engine", Status: "pass"}

	db, err := sql.Open("duckdb", "")
	if err == nil {
		err = db.Ping()
		_ = db.Close()
	}
	if err != nil {
		check.Status = "fail"
		check.Detail = err.Error()
	}

	return check
}

// checkCommand verifies the external conversion program is on PATH.
func checkCommand(command string) output.CheckInfo {
	check := output.CheckInfo{Name: "conversion program", Status: "pass", Detail: command}

	if _, err := exec.LookPath(command); err != nil {
		check.Status = "fail"
		check.Detail = err.Error()
	}

	return check
}

// checkPythonPackages verifies the external program's runtime packages
// import cleanly. Missing packages are a warning, not a failure: convert
// installs them before invoking the program.
func checkPythonPackages(packages []string) output.CheckInfo {
	check := output.CheckInfo{
		Name:   "runtime packages",
		Status: "pass",
		Detail: strings.Join(packages, ", "),
	}

	probe := fmt.Sprintf("import %s", strings.Join(packages, ", "))
	if err := exec.Command("python3", "-c", probe).Run(); err != nil {
		check.Status = "warn"
		check.Detail = fmt.Sprintf("not importable yet (installed on demand): %s", strings.Join(packages, ", "))
	}

	return check
}
