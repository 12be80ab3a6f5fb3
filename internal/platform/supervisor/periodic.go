package supervisor

import (
	"context"
	"log/slog"
	"time"

	"iinfinder/pkg/requestcontext"
)

// Periodic runs fn every interval. A failed run is logged and the loop keeps
// going; Serve only returns when ctx ends.
type Periodic struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context) error
	logger   *slog.Logger
}

type PeriodicOption func(*Periodic)

func WithLogger(logger *slog.Logger) PeriodicOption {
	return func(p *Periodic) {
		p.logger = logger
	}
}

func NewPeriodic(name string, interval time.Duration, fn func(ctx context.Context) error, opts ...PeriodicOption) *Periodic {
	p := &Periodic{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Periodic) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case tick := <-ticker.C:
			p.run(requestcontext.WithTime(ctx, tick))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Periodic) run(ctx context.Context) {
	if err := p.fn(ctx); err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "periodic run failed",
			"service", p.name,
			"error", err,
		)
	}
}

func (p *Periodic) String() string {
	return p.name
}
