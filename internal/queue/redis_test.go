package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"fileconv/internal/queue"
)

// skipWithoutDocker skips t when no container provider is reachable. The
// provider lookup panics instead of skipping when no Docker host exists.
func skipWithoutDocker(t *testing.T) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("docker unavailable: %v", r)
		}
	}()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container in short mode")
	}
	skipWithoutDocker(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return uri
}

func TestRedisQueueDeliversAndAcks(t *testing.T) {
	uri := startRedis(t)
	ctx := context.Background()
	q, err := queue.DialRedis(ctx, queue.RedisOptions{URL: uri, Name: "converter-jobs", BlockTimeout: time.Second, Lease: time.Minute})
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer q.Close()

	for _, id := range []string{"a", "b"} {
		if err := q.Enqueue(ctx, queue.Message{JobID: id}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d, err := q.Dequeue(ctx)
	if err != nil || d == nil || d.Message.JobID != "a" {
		t.Fatalf("unexpected delivery: %#v %v", d, err)
	}
	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pending != 1 || stats.InFlight != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if err := d.Extend(ctx); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := d.Ack(ctx); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	stats, _ = q.Stats(ctx)
	if stats.InFlight != 0 {
		t.Fatalf("expected empty processing list, got %#v", stats)
	}
}

func TestRedisQueueReclaimsExpiredLease(t *testing.T) {
	uri := startRedis(t)
	ctx := context.Background()
	q, err := queue.DialRedis(ctx, queue.RedisOptions{URL: uri, BlockTimeout: time.Second, Lease: time.Second})
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer q.Close()

	if err := q.Enqueue(ctx, queue.Message{JobID: "crashy"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if d, err := q.Dequeue(ctx); err != nil || d == nil {
		t.Fatalf("Dequeue: %#v %v", d, err)
	}
	if n, err := q.Reclaim(ctx); err != nil || n != 0 {
		t.Fatalf("expected live lease to be kept, got %d %v", n, err)
	}

	time.Sleep(1500 * time.Millisecond)
	if n, err := q.Reclaim(ctx); err != nil || n != 0 {
		t.Fatalf("expected first unleased sighting to be held, got %d %v", n, err)
	}
	time.Sleep(1100 * time.Millisecond)
	n, err := q.Reclaim(ctx)
	if err != nil {
		t.Fatalf("Reclaim: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one reclaimed delivery, got %d", n)
	}
	d, err := q.Dequeue(ctx)
	if err != nil || d == nil || d.Message.JobID != "crashy" {
		t.Fatalf("expected redelivery, got %#v %v", d, err)
	}
}

func TestRedisQueueReclaimSparesDeliveryBeforeLeaseWrite(t *testing.T) {
	uri := startRedis(t)
	ctx := context.Background()
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	q := queue.NewRedis(client, queue.RedisOptions{Name: "jobs", BlockTimeout: time.Second, Lease: time.Minute})
	defer q.Close()

	// A worker has moved the message but not yet written its lease.
	raw, err := queue.Message{JobID: "claimed"}.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := client.LPush(ctx, "jobs:processing", raw).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n, err := q.Reclaim(ctx); err != nil || n != 0 {
		t.Fatalf("expected in-flight claim to be spared, got %d %v", n, err)
	}

	if err := client.Set(ctx, "jobs:lease:claimed", raw, time.Minute).Err(); err != nil {
		t.Fatalf("lease: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if n, err := q.Reclaim(ctx); err != nil || n != 0 {
		t.Fatalf("expected leased delivery to stay, got %d %v", n, err)
	}
	if pending, err := client.LLen(ctx, "jobs").Result(); err != nil || pending != 0 {
		t.Fatalf("expected nothing requeued, got %d %v", pending, err)
	}
}

func TestRedisQueueDropsMalformedPayload(t *testing.T) {
	uri := startRedis(t)
	ctx := context.Background()
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	q := queue.NewRedis(client, queue.RedisOptions{Name: "jobs", BlockTimeout: time.Second})
	defer q.Close()

	if err := client.LPush(ctx, "jobs", "garbage").Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatal("expected decode error")
	}
	stats, _ := q.Stats(ctx)
	if stats.Pending != 0 || stats.InFlight != 0 {
		t.Fatalf("expected malformed message removed, got %#v", stats)
	}
}
