package services

import (
	"context"
	"time"

	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// Poller drives a notification view: one pull on start, then one per tick
// and one per trigger. A zero Interval disables the ticker, leaving the
// view trigger-driven.
type Poller struct {
	clock    query.Clock
	interval time.Duration
	trigger  <-chan struct{}
	now      chan struct{}
	logger   *logger.Logger
}

func NewPoller(clock query.Clock, interval time.Duration, trigger <-chan struct{}, log *logger.Logger) *Poller {
	if clock == nil {
		clock = query.RealClock()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Poller{
		clock:    clock,
		interval: interval,
		trigger:  trigger,
		now:      make(chan struct{}, 1),
		logger:   log.WithComponent("poller"),
	}
}

// PullNow requests an immediate pull from a running poller.
func (p *Poller) PullNow() {
	select {
	case p.now <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done. Pull errors are logged and polling goes on.
func (p *Poller) Run(ctx context.Context, pull func(context.Context) error) error {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := p.clock.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	p.pull(ctx, pull, "start")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			p.pull(ctx, pull, "tick")
		case <-p.trigger:
			p.pull(ctx, pull, "signal")
		case <-p.now:
			p.pull(ctx, pull, "manual")
		}
	}
}

func (p *Poller) pull(ctx context.Context, pull func(context.Context) error, reason string) {
	if err := pull(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warnw("Notification pull failed", "reason", reason, "error", err)
	}
}
