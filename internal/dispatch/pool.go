// Package dispatch runs acquisition jobs on a small worker pool so slow
// downloads never block the goroutine that polls for chat updates.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of background work. The context is the pool's run context;
// jobs must honor its cancellation.
type Job func(ctx context.Context)

// Pool consumes Jobs with a fixed number of workers.
type Pool struct {
	queue   chan Job
	workers int
	logger  *slog.Logger
	once    sync.Once
}

// New builds a Pool with queue capacity tied to worker count.
func New(workers int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		queue:   make(chan Job, workers*4),
		workers: workers,
		logger:  log.With(slog.String("component", "dispatch")),
	}
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker(ctx)
		}
	})
}

// Submit queues a job. It reports false when the queue is full so the caller
// can tell the user the bot is busy instead of silently dropping work.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.logger.Warn("queue full, job rejected")
		return false
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			job(ctx)
		}
	}
}
