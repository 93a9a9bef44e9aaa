package resource

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when usage is above the soft memory limit.
var ErrMemoryLimitExceeded = errors.New("memory soft limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the soft limit for pooled storage.
	// If 0, memory is only tracked.
	MemoryLimitBytes int64

	// MaxWorkers is the maximum number of concurrent query workers.
	// If 0, defaults to GOMAXPROCS.
	MaxWorkers int64
}

// Controller tracks memory and hands out worker slots.
type Controller struct {
	cfg Config

	memUsed atomic.Int64
	memPeak atomic.Int64

	workers *semaphore.Weighted
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}

	return &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
}

// AcquireMemory records a reservation of bytes. The reservation always
// succeeds; ErrMemoryLimitExceeded signals that usage is now above the soft limit.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	used := c.memUsed.Add(bytes)

	for {
		peak := c.memPeak.Load()
		if used <= peak || c.memPeak.CompareAndSwap(peak, used) {
			break
		}
	}

	if c.cfg.MemoryLimitBytes > 0 && used > c.cfg.MemoryLimitBytes {
		return ErrMemoryLimitExceeded
	}

	return nil
}

// ReleaseMemory releases a reservation.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}

	return c.memUsed.Load()
}

// PeakMemoryUsage returns the highest reserved byte count observed.
func (c *Controller) PeakMemoryUsage() int64 {
	if c == nil {
		return 0
	}

	return c.memPeak.Load()
}

// MemoryLimit returns the configured soft limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}

	return c.cfg.MemoryLimitBytes
}

// MaxWorkers returns the number of worker slots.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}

	return int(c.cfg.MaxWorkers)
}

// AcquireWorker reserves a worker slot, blocking until one is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}

	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}

	return c.workers.TryAcquire(1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}

	c.workers.Release(1)
}
