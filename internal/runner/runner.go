package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"fileconv/internal/logging"
	"fileconv/internal/services"
)

// DefaultTimeout bounds a single external conversion.
const DefaultTimeout = 10 * time.Minute

const stderrTail = 2048

// Options adjusts a single invocation.
type Options struct {
	Dir     string
	Stdin   io.Reader
	Env     []string
	Timeout time.Duration
}

// Result captures the output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, opts Options) (Result, error)
}

// Runner is the process-backed Executor.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a Runner. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, logger: logging.NewComponentLogger(logger, "runner")}
}

// Timeout reports the default ceiling applied when Options.Timeout is unset.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run executes binary with args and waits for it to finish.
func (r *Runner) Run(ctx context.Context, binary string, args []string, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := filepath.Base(binary)
	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Office and browser tools fork helpers; kill the whole group.
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := logging.WithContext(ctx, r.logger)
	log.Debug("running external tool",
		logging.String("binary", binary),
		logging.Strings("args", args),
		logging.Duration("timeout", timeout),
	)

	started := time.Now()
	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(started)}

	switch {
	case err == nil:
		log.Debug("external tool finished",
			logging.String("binary", name),
			logging.Duration("duration", result.Duration),
		)
		return result, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return result, services.Wrap(services.ErrTimeout, "runner", name,
			fmt.Sprintf("%s did not finish within %s", name, timeout), err)
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		return result, services.Wrap(services.ErrToolUnavailable, "runner", name,
			fmt.Sprintf("%s is not installed", name), err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, services.Wrap(services.ErrToolFailed, "runner", name,
			failureMessage(name, exitErr.ExitCode(), result.Stderr), err)
	}
	return result, services.Wrap(services.ErrToolFailed, "runner", name, name+" could not be started", err)
}

func failureMessage(name string, code int, stderr []byte) string {
	detail := strings.TrimSpace(string(stderr))
	if len(detail) > stderrTail {
		detail = "..." + detail[len(detail)-stderrTail:]
	}
	if detail == "" {
		return fmt.Sprintf("%s exited with status %d", name, code)
	}
	return fmt.Sprintf("%s exited with status %d: %s", name, code, detail)
}
