// Package dap wraps the DAP command-line extraction tool as a subprocess.
//
// Every operation shells out to the `dap` binary with the configured
// gateway credentials and namespace, matching the tool's flag surface:
//
//	dap --base-url U --client-id I --client-secret S <command ...> --namespace N
//
// Outputs land under the downloads directory: one staging subdirectory per
// extraction job for data payloads, and versioned schema documents next to
// them.
package dap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const binaryName = "dap"

// ErrNoData indicates an extraction job produced no staged data files.
var ErrNoData = errors.New("no data files staged")

// ExtractError is returned when the DAP subprocess exits non-zero.
type ExtractError struct {
	Command string // first command word, e.g. "snapshot"
	Output  string // captured stderr, trimmed
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("dap %s: %v: %s", e.Command, e.Err, e.Output)
	}
	return fmt.Sprintf("dap %s: %v", e.Command, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Config carries the credentials and paths the CLI needs.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Namespace    string

	// DownloadsDir is where the dap binary stages its outputs.
	DownloadsDir string
}

// CLI invokes the DAP tool. The zero value is not usable; construct with New.
type CLI struct {
	cfg Config

	// Exec runs the dap binary and returns its stdout. It exists so tests
	// can capture arguments without spawning processes; production code
	// leaves it as set by New.
	Exec func(ctx context.Context, args []string) ([]byte, error)
}

// New returns a CLI that spawns the real dap binary.
func New(cfg Config) *CLI {
	return &CLI{
		cfg: cfg,
		Exec: func(ctx context.Context, args []string) ([]byte, error) {
			return exec.CommandContext(ctx, binaryName, args...).Output()
		},
	}
}

// run executes one dap command, returning its stdout.
func (c *CLI) run(ctx context.Context, command string, extra ...string) ([]byte, error) {
	args := []string{
		"--base-url", c.cfg.BaseURL,
		"--client-id", c.cfg.ClientID,
		"--client-secret", c.cfg.ClientSecret,
		command,
	}
	args = append(args, extra...)
	args = append(args, "--namespace", c.cfg.Namespace)

	out, err := c.Exec(ctx, args)
	if err != nil {
		stderr := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, &ExtractError{Command: command, Output: stderr, Err: err}
	}
	return out, nil
}

// ListTables returns the table names known to the source namespace,
// parsed as the whitespace-separated output of `dap list`.
func (c *CLI) ListTables(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(out)), nil
}

// Snapshot runs a full parquet extraction for table. The payload is staged
// under a fresh job directory; locate it with JobID and StagedFile.
func (c *CLI) Snapshot(ctx context.Context, table string) error {
	_, err := c.run(ctx, "snapshot", "--table", table, "--format", "parquet")
	return err
}

// Incremental runs an incremental parquet extraction of changes since the
// given marker. The batch driver does not call this; it exists for ad-hoc
// catch-up extractions with the same credential plumbing.
func (c *CLI) Incremental(ctx context.Context, table, since string) error {
	_, err := c.run(ctx, "incremental", "--table", table, "--format", "parquet", "--since", since)
	return err
}

// ExportSchema asks the tool to write the table's schema-description
// document into the downloads directory.
func (c *CLI) ExportSchema(ctx context.Context, table string) error {
	_, err := c.run(ctx, "schema", "--table", table)
	return err
}

// JobID discovers the staging job identifier as the first subdirectory of
// the downloads directory. The tool stages one job at a time, so the first
// directory found is the current job.
func (c *CLI) JobID() (string, error) {
	entries, err := os.ReadDir(c.cfg.DownloadsDir)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", c.cfg.DownloadsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			return e.Name(), nil
		}
	}
	return "", fmt.Errorf("no extraction job directory under %s", c.cfg.DownloadsDir)
}

// StagedFile returns the parquet payload staged for jobID. Exactly one file
// is expected per job; if several exist the first (lexically) is used.
//
// Errors:
//   - ErrNoData (wrapped) when the job directory holds no parquet files.
func (c *CLI) StagedFile(jobID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(c.cfg.DownloadsDir, jobID, "*.parquet"))
	if err != nil {
		return "", fmt.Errorf("glob job %s: %w", jobID, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: job %s", ErrNoData, jobID)
	}
	return matches[0], nil
}

// Cleanup removes the staging directory for jobID after a table has been
// fully processed.
func (c *CLI) Cleanup(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("cleanup: empty job id")
	}
	return os.RemoveAll(filepath.Join(c.cfg.DownloadsDir, jobID))
}
