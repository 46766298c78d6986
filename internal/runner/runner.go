package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTimeout is the audit execution timeout. A full Lynis run on a
// busy host can take many minutes.
const DefaultTimeout = 30 * time.Minute

// DefaultPreviewLength is the number of characters kept in RunResult.Preview.
const DefaultPreviewLength = 2000

// ExecFunc is the signature for running a command and capturing stdout.
// It receives the context, binary path, and args. A non-zero exit must be
// reported as *ExitError so the runner can keep the output.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("exit status %d", e.Code)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// DefaultExec runs the command with os/exec.
func DefaultExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return out, err
}

// RunConfig describes a single audit invocation.
type RunConfig struct {
	Binary        string
	Args          []string
	UseSudo       bool
	SudoBinary    string
	Timeout       time.Duration
	PreviewLength int
}

// RunResult is the outcome of a single audit invocation.
type RunResult struct {
	Command     []string      `json:"command"`
	Output      []byte        `json:"-"`
	OutputBytes int           `json:"output_bytes"`
	Preview     string        `json:"preview,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
}

// Runner executes the audit tool and captures its text report.
type Runner struct {
	execFn ExecFunc
}

// New creates a Runner with the given exec function.
func New(execFn ExecFunc) *Runner {
	if execFn == nil {
		execFn = DefaultExec
	}
	return &Runner{execFn: execFn}
}

// Command returns the argv the runner would execute for cfg.
func Command(cfg RunConfig) []string {
	var argv []string
	if cfg.UseSudo {
		sudo := cfg.SudoBinary
		if sudo == "" {
			sudo = "sudo"
		}
		// -n: fail instead of prompting for a password
		argv = append(argv, sudo, "-n")
	}
	argv = append(argv, cfg.Binary)
	return append(argv, cfg.Args...)
}

// Run executes the audit. Lynis exits non-zero when it has warnings, so a
// non-zero exit that still produced output counts as success. A run with
// no output is always a failure.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) RunResult {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	previewLen := cfg.PreviewLength
	if previewLen == 0 {
		previewLen = DefaultPreviewLength
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := Command(cfg)
	result := RunResult{Command: argv}

	start := time.Now()
	stdout, err := r.execFn(runCtx, argv[0], argv[1:]...)
	result.Duration = time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		result.Error = fmt.Sprintf("audit timed out after %s", timeout)
		return result
	}

	var exitErr *ExitError
	if err != nil {
		if !errors.As(err, &exitErr) {
			result.Error = err.Error()
			return result
		}
		result.ExitCode = exitErr.Code
	}

	if len(bytes.TrimSpace(stdout)) == 0 {
		if err != nil {
			result.Error = fmt.Sprintf("audit produced no output: %v", err)
		} else {
			result.Error = "audit produced no output"
		}
		return result
	}

	result.Output = stdout
	result.OutputBytes = len(stdout)
	result.Preview = Preview(string(stdout), previewLen)
	result.Success = true
	return result
}

// Preview returns at most n characters of s, cut on a rune boundary.
func Preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
