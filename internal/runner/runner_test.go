package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRunCapturesStdout(t *testing.T) {
	r := runner.New(time.Minute, logging.NewNop())
	tool := writeScript(t, `echo "hello $1"`)

	res, err := r.Run(context.Background(), tool, []string{"world"}, runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello world" {
		t.Fatalf("unexpected stdout %q", res.Stdout)
	}
}

func TestRunReportsNonZeroExit(t *testing.T) {
	r := runner.New(time.Minute, logging.NewNop())
	tool := writeScript(t, `echo "bad input" >&2; exit 3`)

	_, err := r.Run(context.Background(), tool, nil, runner.Options{})
	if !errors.Is(err, services.ErrToolFailed) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	msg := services.FailureMessage(err)
	if !strings.Contains(msg, "status 3") || !strings.Contains(msg, "bad input") {
		t.Fatalf("expected exit status and stderr in message, got %q", msg)
	}
}

func TestRunKillsOnTimeout(t *testing.T) {
	r := runner.New(time.Minute, logging.NewNop())
	tool := writeScript(t, `sleep 30`)

	started := time.Now()
	_, err := r.Run(context.Background(), tool, nil, runner.Options{Timeout: 200 * time.Millisecond})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > 10*time.Second {
		t.Fatalf("process was not killed promptly: %s", elapsed)
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := runner.New(time.Minute, logging.NewNop())
	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "absent"), nil, runner.Options{})
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected tool unavailable, got %v", err)
	}
}

func TestRunUsesWorkingDirectory(t *testing.T) {
	r := runner.New(time.Minute, logging.NewNop())
	dir := t.TempDir()
	tool := writeScript(t, `touch produced.txt`)

	if _, err := r.Run(context.Background(), tool, nil, runner.Options{Dir: dir}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "produced.txt")); err != nil {
		t.Fatalf("expected file in working directory: %v", err)
	}
}
