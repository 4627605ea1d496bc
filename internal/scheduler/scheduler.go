package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"content_import/internal/domain"
)

// Runner defines the interface for one import tick.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

// Scheduler fires the runner on a cron schedule. Overlapping ticks are not
// suppressed here; the runner rejects them itself. Ticks carry no deadline,
// the runner bounds each importer on its own.
type Scheduler struct {
	runner Runner
	spec   string
	cron   *cron.Cron
	logger *slog.Logger
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewScheduler(runner Runner, spec string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	return &Scheduler{
		runner: runner,
		spec:   spec,
		cron:   cron.New(cron.WithParser(parser)),
		logger: logger,
	}, nil
}

// Start runs one tick immediately, then on every schedule activation until
// ctx is done. It waits for a running tick before returning.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "schedule", s.spec)

	s.tick(ctx)

	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule runner: %w", err)
	}
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if _, err := s.runner.Run(ctx); err != nil && !errors.Is(err, domain.ErrRunInProgress) {
		s.logger.Error("import run failed", "error", err)
	}
}
