package job

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is one run of a periodic job
type Task func(ctx context.Context) error

// Periodic runs a task on a fixed interval until its context is cancelled.
// A failing run is logged and the next tick proceeds as usual.
type Periodic struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger
	done     chan struct{}
}

// NewPeriodic creates a job; non-positive intervals fall back to one hour
func NewPeriodic(name string, interval time.Duration, task Task, logger *zap.Logger) *Periodic {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Periodic{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the loop in its own goroutine
func (p *Periodic) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run blocks until ctx is done. The first run happens after one interval.
func (p *Periodic) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Job stopped", zap.String("job", p.name))
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// Done is closed once Run has returned
func (p *Periodic) Done() <-chan struct{} {
	return p.done
}

func (p *Periodic) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked", zap.String("job", p.name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := p.task(ctx); err != nil {
		p.logger.Error("Job run failed", zap.String("job", p.name), zap.Error(err))
		return
	}
	p.logger.Debug("Job run completed", zap.String("job", p.name), zap.Duration("duration", time.Since(start)))
}
