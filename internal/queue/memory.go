package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process FIFO used for single-binary runs and tests.
// Messages do not survive a restart.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []Message
	inFlight int64
	signal   chan struct{}
	block    time.Duration
	closed   bool
}

// NewMemory returns an empty in-memory queue.
func NewMemory(block time.Duration) *MemoryQueue {
	if block <= 0 {
		block = time.Second
	}
	return &MemoryQueue{signal: make(chan struct{}, 1), block: block}
}

func (q *MemoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Enqueue appends msg.
func (q *MemoryQueue) Enqueue(_ context.Context, msg Message) error {
	if _, err := msg.Encode(); err != nil {
		return err
	}
	q.mu.Lock()
	q.pending = append(q.pending, msg)
	q.mu.Unlock()
	q.notify()
	return nil
}

// Dequeue pops the oldest message, waiting up to the block timeout.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	timer := time.NewTimer(q.block)
	defer timer.Stop()
	for {
		if d := q.pop(); d != nil {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return q.pop(), nil
		case <-q.signal:
		}
	}
}

func (q *MemoryQueue) pop() *Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.pending) == 0 {
		return nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.inFlight++
	if len(q.pending) > 0 {
		q.notify()
	}

	var once sync.Once
	settle := func(requeue bool) {
		once.Do(func() {
			q.mu.Lock()
			q.inFlight--
			if requeue {
				q.pending = append([]Message{msg}, q.pending...)
			}
			q.mu.Unlock()
			if requeue {
				q.notify()
			}
		})
	}
	return &Delivery{
		Message: msg,
		ack:     func(context.Context) error { settle(false); return nil },
		nack:    func(context.Context) error { settle(true); return nil },
	}
}

// Reclaim is a no-op: in-memory deliveries cannot outlive their worker.
func (q *MemoryQueue) Reclaim(context.Context) (int, error) { return 0, nil }

// Stats reports queue depth.
func (q *MemoryQueue) Stats(context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{Pending: int64(len(q.pending)), InFlight: q.inFlight}, nil
}

// Close stops further deliveries.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
