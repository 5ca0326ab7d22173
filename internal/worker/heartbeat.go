package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fileconv/internal/logging"
	"fileconv/internal/queue"
)

// heartbeat renews the lease of d until ctx is cancelled.
func (c *Consumer) heartbeat(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, d *queue.Delivery) {
	defer wg.Done()
	ticker := time.NewTicker(c.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Extend(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("lease renewal failed", logging.Error(err))
			}
		}
	}
}

// reclaimLoop returns deliveries whose lease expired to the queue.
func (c *Consumer) reclaimLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.opts.Queue.Reclaim(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("reclaim of expired deliveries failed; stuck jobs may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue connectivity"),
				)
				continue
			}
			if n > 0 {
				c.logger.Info("reclaimed expired deliveries",
					logging.String(logging.FieldEventType, "reclaimed"),
					logging.Int("count", n),
				)
			}
		}
	}
}
