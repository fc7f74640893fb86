// Package scheduler drives the periodic refresh trigger. It is a fixed-delay
// loop for exactly one job, not a general-purpose scheduler.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TriggerFunc runs one refresh batch and reports how many items it attempted.
type TriggerFunc func(ctx context.Context) (int, error)

// Options tune the trigger cadence.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler invokes a trigger at a fixed delay until its context is cancelled.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the trigger every interval until ctx is cancelled.
// Trigger failures are logged and the loop continues; a failed run simply
// leaves its items stale for the next one.
func (s *Scheduler) Run(ctx context.Context, trigger TriggerFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s.logger.Info().Msg("executing scheduled refresh")
		processed, err := trigger(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("scheduled refresh failed")
			continue
		}
		s.logger.Info().Int("processed", processed).Msg("scheduled refresh finished")
	}
}
