package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"fileconv/internal/config"
	"fileconv/internal/services"
)

// DefaultName is the queue job ids are published to.
const DefaultName = "converter-jobs"

// Message is the queue payload: {"jobId": "..."}.
type Message struct {
	JobID string `json:"jobId"`
}

// Encode renders the wire form of m.
func (m Message) Encode() (string, error) {
	if strings.TrimSpace(m.JobID) == "" {
		return "", services.Wrap(services.ErrValidation, "queue", "encode", "job id is required", nil)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return string(data), nil
}

// DecodeMessage parses the wire form of a queue message.
func DecodeMessage(raw string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, services.Wrap(services.ErrValidation, "queue", "decode", "malformed queue message", err)
	}
	msg.JobID = strings.TrimSpace(msg.JobID)
	if msg.JobID == "" {
		return Message{}, services.Wrap(services.ErrValidation, "queue", "decode", "queue message has no jobId", nil)
	}
	return msg, nil
}

// Delivery is a dequeued message that must be acknowledged or returned.
type Delivery struct {
	Message Message

	ack    func(context.Context) error
	nack   func(context.Context) error
	extend func(context.Context) error
}

// Ack removes the message permanently.
func (d *Delivery) Ack(ctx context.Context) error {
	if d == nil || d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Nack returns the message to the queue for another attempt.
func (d *Delivery) Nack(ctx context.Context) error {
	if d == nil || d.nack == nil {
		return nil
	}
	return d.nack(ctx)
}

// Extend renews the delivery lease so the message is not reclaimed while a
// long conversion is still running.
func (d *Delivery) Extend(ctx context.Context) error {
	if d == nil || d.extend == nil {
		return nil
	}
	return d.extend(ctx)
}

// Stats reports queue depth.
type Stats struct {
	Pending  int64
	InFlight int64
}

// Queue is the transport between job producers and workers.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	// Dequeue waits up to the configured block timeout and returns (nil, nil)
	// when nothing arrived.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Reclaim returns in-flight messages whose lease expired to the queue.
	Reclaim(ctx context.Context) (int, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Open returns the transport selected by configuration.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Queue, error) {
	switch cfg.Queue.Backend {
	case config.QueueMemory:
		return NewMemory(cfg.BlockTimeout()), nil
	case config.QueueRedis, "":
		return DialRedis(ctx, RedisOptions{
			URL:          cfg.Queue.RedisURL,
			Name:         cfg.Queue.Name,
			BlockTimeout: cfg.BlockTimeout(),
			Lease:        cfg.LeaseDuration(),
			Logger:       logger,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "queue", "open",
			fmt.Sprintf("unsupported queue backend %q", cfg.Queue.Backend), nil)
	}
}
