package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// DefaultCommand is the conversion program invoked when none is configured.
var DefaultCommand = []string{"python3", "convert_to_parquet.py"}

// DefaultPackages are the runtime packages the default conversion program
// needs.
var DefaultPackages = []string{"pandas", "pyarrow"}

// ExternalRunner invokes a separate conversion program. The program is run
// from the data root with no arguments beyond those configured, and its
// exit code is surfaced verbatim: what it does internally is its own
// business.
type ExternalRunner struct {
	root     string
	command  string
	args     []string
	packages []string
	logger   *slog.Logger
}

// NewExternalRunner creates a runner for the given command. Empty command
// and packages fall back to the defaults.
func NewExternalRunner(root, command string, args, packages []string, logger *slog.Logger) *ExternalRunner {
	if command == "" {
		command = DefaultCommand[0]
		args = DefaultCommand[1:]
		if packages == nil {
			packages = DefaultPackages
		}
	}

	return &ExternalRunner{
		root:     root,
		command:  command,
		args:     args,
		packages: packages,
		logger:   logger,
	}
}

// ExitError wraps a non-zero exit from the conversion program.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("conversion program exited with code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Convert installs the runtime packages, then runs the conversion program.
// A package installation failure is logged and ignored; the program run is
// what decides the outcome.
func (r *ExternalRunner) Convert(ctx context.Context) error {
	r.ensurePackages(ctx)

	r.logger.Info("invoking conversion program", "command", r.command, "args", r.args, "dir", r.root)

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Dir = r.root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Err: err}
		}
		return fmt.Errorf("failed to run conversion program %s: %w", r.command, err)
	}

	return nil
}

// ensurePackages installs the configured runtime packages via pip. Failure
// is not fatal: if the packages are genuinely missing, the conversion
// program will say so itself.
func (r *ExternalRunner) ensurePackages(ctx context.Context) {
	if len(r.packages) == 0 {
		return
	}

	args := append([]string{"-m", "pip", "install", "--quiet"}, r.packages...)
	cmd := exec.CommandContext(ctx, "python3", args...)
	cmd.Dir = r.root

	if out, err := cmd.CombinedOutput(); err != nil {
		r.logger.Warn("package installation failed", "packages", r.packages, "error", err, "output", string(out))
	}
}
