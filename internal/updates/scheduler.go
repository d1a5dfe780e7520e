package updates

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MinCheckInterval is the shortest interval a Scheduler accepts.
const MinCheckInterval = time.Minute

// Scheduler triggers a ResolveAll pass on a fixed interval and on demand.
// A tick that arrives while a pass is still fetching is dropped.
type Scheduler struct {
	resolver *Resolver
	interval time.Duration
	trigger  chan struct{}
	onReport func(Report)
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler for resolver.
func NewScheduler(resolver *Resolver, interval time.Duration) (*Scheduler, error) {
	if interval < MinCheckInterval {
		return nil, fmt.Errorf("check interval %s is shorter than %s", interval, MinCheckInterval)
	}
	return &Scheduler{
		resolver: resolver,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   slog.Default(),
	}, nil
}

// OnReport sets a callback invoked after every completed pass.
func (s *Scheduler) OnReport(fn func(Report)) {
	s.onReport = fn
}

// Trigger requests an immediate pass. Requests made while one is pending
// are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs a pass immediately and then on every tick until ctx is done.
// It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("update scheduler started", "interval", s.interval)
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("update scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, ok := s.resolver.TryResolveAll(ctx)
	if !ok {
		s.logger.Debug("update check already running, skipping")
		return
	}
	if report.AllFailed() {
		s.logger.Warn("every descriptor fetch failed", "checked", report.Checked)
	}
	if s.onReport != nil {
		s.onReport(report)
	}
}
