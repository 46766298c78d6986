package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockExec returns a function that produces canned output and records argv.
func mockExec(out []byte, err error, argv *[]string) ExecFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if argv != nil {
			*argv = append([]string{name}, args...)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return out, err
		}
	}
}

func TestRun_Success(t *testing.T) {
	var argv []string
	r := New(mockExec([]byte("Hardening index : 70\n"), nil, &argv))

	res := r.Run(context.Background(), RunConfig{
		Binary: "/usr/sbin/lynis",
		Args:   []string{"audit", "system", "--quick"},
	})

	if !res.Success {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if string(res.Output) != "Hardening index : 70\n" {
		t.Errorf("output mismatch: %q", res.Output)
	}
	if res.OutputBytes != len(res.Output) {
		t.Errorf("output bytes = %d", res.OutputBytes)
	}
	if strings.Join(argv, " ") != "/usr/sbin/lynis audit system --quick" {
		t.Errorf("argv = %v", argv)
	}
}

func TestRun_Sudo(t *testing.T) {
	var argv []string
	r := New(mockExec([]byte("x"), nil, &argv))

	r.Run(context.Background(), RunConfig{Binary: "lynis", Args: []string{"audit", "system"}, UseSudo: true})

	if strings.Join(argv, " ") != "sudo -n lynis audit system" {
		t.Errorf("argv = %v", argv)
	}
}

func TestRun_NonZeroExitWithOutput(t *testing.T) {
	r := New(mockExec([]byte("Warnings (1):\n ! thing\n"), &ExitError{Code: 78}, nil))

	res := r.Run(context.Background(), RunConfig{Binary: "lynis"})
	if !res.Success {
		t.Fatalf("non-zero exit with output should succeed: %s", res.Error)
	}
	if res.ExitCode != 78 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestRun_NonZeroExitNoOutput(t *testing.T) {
	r := New(mockExec(nil, &ExitError{Code: 1, Stderr: "sudo: a password is required"}, nil))

	res := r.Run(context.Background(), RunConfig{Binary: "lynis", UseSudo: true})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "password is required") {
		t.Errorf("error should carry stderr: %q", res.Error)
	}
}

func TestRun_EmptyOutput(t *testing.T) {
	r := New(mockExec([]byte("   \n"), nil, nil))
	res := r.Run(context.Background(), RunConfig{Binary: "lynis"})
	if res.Success || !strings.Contains(res.Error, "no output") {
		t.Errorf("expected no-output failure, got %+v", res)
	}
}

func TestRun_BinaryError(t *testing.T) {
	r := New(mockExec(nil, errors.New("executable file not found in $PATH"), nil))
	res := r.Run(context.Background(), RunConfig{Binary: "/nonexistent/lynis"})
	if res.Success || res.Error == "" {
		t.Fatalf("expected failure with message, got %+v", res)
	}
}

func TestRun_Timeout(t *testing.T) {
	exec := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return []byte("partial"), ctx.Err()
	}

	res := New(exec).Run(context.Background(), RunConfig{Binary: "lynis", Timeout: 50 * time.Millisecond})
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q", res.Error)
	}
	if res.Duration < 50*time.Millisecond {
		t.Errorf("expected duration >= 50ms, got %v", res.Duration)
	}
}

func TestRun_PreviewTruncated(t *testing.T) {
	long := strings.Repeat("a", 5000)
	res := New(mockExec([]byte(long), nil, nil)).Run(context.Background(), RunConfig{Binary: "lynis", PreviewLength: 100})
	if len(res.Preview) != 100 {
		t.Errorf("preview = %d chars", len(res.Preview))
	}
	if len(res.Output) != 5000 {
		t.Errorf("full output must be kept, got %d", len(res.Output))
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Preview(tt.in, tt.n); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestCommand(t *testing.T) {
	got := Command(RunConfig{Binary: "lynis", Args: []string{"audit"}, UseSudo: true, SudoBinary: "/usr/bin/doas"})
	if strings.Join(got, " ") != "/usr/bin/doas -n lynis audit" {
		t.Errorf("Command = %v", got)
	}
}

func TestExitErrorMessage(t *testing.T) {
	e := &ExitError{Code: 2, Stderr: " boom \n"}
	if e.Error() != "exit status 2: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}
