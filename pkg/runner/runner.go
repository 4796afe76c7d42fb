// Package runner executes external command-line tools.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds the captured stderr tail of a tool run.
const maxStderr = 64 << 10

// Result describes a finished tool run.
type Result struct {
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// Runner runs argv[0] with the remaining arguments. stdout receives the
// standard output stream and may be nil. A nonzero exit is reported through
// Result.ExitCode; err is reserved for failures to start or wait for the tool.
type Runner interface {
	Run(ctx context.Context, argv []string, stdout io.Writer) (Result, error)
}

// Exec runs tools as child processes.
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, argv []string, stdout io.Writer) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("runner: empty command")
	}
	if stdout == nil {
		stdout = io.Discard
	}

	stderr := &tailBuffer{max: maxStderr}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	slog.Debug("Runner: starting tool", "argv", strings.Join(argv, " "))
	start := time.Now()
	err := cmd.Run()
	res := Result{Stderr: strings.TrimSpace(stderr.String()), Duration: time.Since(start)}

	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			slog.Debug("Runner: tool exited", "tool", argv[0], "code", res.ExitCode, "duration", res.Duration)
			return res, nil
		}
		return res, fmt.Errorf("runner: %s: %w", argv[0], err)
	}

	slog.Debug("Runner: tool finished", "tool", argv[0], "duration", res.Duration)
	return res, nil
}

// tailBuffer keeps the last max bytes written to it, where tools print
// their final error.
type tailBuffer struct {
	buf []byte
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= b.max {
		b.buf = append(b.buf[:0], p[n-b.max:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.max; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) String() string { return string(b.buf) }
