package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fileconv/internal/blobstore"
	"fileconv/internal/jobstore"
	"fileconv/internal/queue"
	"fileconv/internal/testsupport"
)

func TestOpenValidatesRegistryAgainstRouter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIsolatedPath())

	services, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })

	if services.Registry.Len() == 0 {
		t.Fatal("expected a populated recipe registry")
	}
	for _, r := range services.Registry.All() {
		if !services.Router.Supports(r.Family) {
			t.Fatalf("recipe %s has no handler for family %s", r.Slug, r.Family)
		}
	}
}

func TestConsumerCompletesEnqueuedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithIsolatedPath(), testsupport.WithConcurrency(2))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = services.Close() })

	testsupport.SeedJob(t, services.Jobs, services.Blobs, "job-daemon", "csv-to-json",
		testsupport.Upload{Filename: "rows.csv", Data: []byte("a,b\n1,2\n")})
	if err := services.Queue.Enqueue(ctx, queue.Message{JobID: "job-daemon"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	consumer := services.NewConsumer(0)
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer consumer.Stop()
	if workers := consumer.Status().Workers; workers != 2 {
		t.Fatalf("expected worker.concurrency to size the pool, got %d workers", workers)
	}

	deadline := time.Now().Add(10 * time.Second)
	var record *jobstore.Record
	for time.Now().Before(deadline) {
		record, err = services.Jobs.Get(ctx, "job-daemon")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if record != nil && record.Status.IsTerminal() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if record == nil || record.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed job, got %+v", record)
	}
	if len(record.Outputs) != 1 || record.Outputs[0].Filename != "rows.json" {
		t.Fatalf("unexpected outputs: %+v", record.Outputs)
	}
	data, err := blobstore.ReadAll(ctx, services.Blobs, record.Outputs[0].Key)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.Contains(string(data), `"a": "1"`) {
		t.Fatalf("unexpected json output: %s", data)
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "fileconv-1.log")
	second := filepath.Join(dir, "fileconv-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "fileconv.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "fileconv-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fileconv.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		t.Fatal("pid file is empty")
	}
}
