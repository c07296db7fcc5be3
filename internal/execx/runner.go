// Package execx is the command execution port: every external tool the
// pipeline drives (yt-dlp, ffmpeg, ffprobe) is invoked through Runner so
// tests and alternative transports can substitute the subprocess layer.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

//go:generate mockgen -destination=mocks/runner.go -package=mocks github.com/vmunix/trailgo/internal/execx Runner

// Result captures one finished tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the tool exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stderr if present, otherwise stdout. Tools in this
// pipeline write diagnostics to either stream.
func (r Result) Output() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// Runner executes an external tool and reports its outcome.
// A non-zero exit is reported in Result, not as an error; the error return
// covers failures to run at all (missing binary, canceled context).
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs tools as child processes via os/exec.
// Context cancellation kills the in-flight process.
type ExecRunner struct{}

// Run executes name with args and captures both output streams.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return res, nil
	}

	// A killed process surfaces as an exit error; prefer the context's
	// explanation so timeouts are distinguishable from tool failures.
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, fmt.Errorf("run %s: %w", name, err)
}
