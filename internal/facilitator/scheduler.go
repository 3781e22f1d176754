// internal/facilitator/scheduler.go

package facilitator

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PromptScheduler runs the daily prompt sweep on an interval
type PromptScheduler struct {
	prompter *Prompter
	interval time.Duration
	stopCh   chan struct{}
	logger   zerolog.Logger
}

// NewPromptScheduler creates a new prompt scheduler
func NewPromptScheduler(prompter *Prompter, interval time.Duration, logger zerolog.Logger) *PromptScheduler {
	if interval == 0 {
		interval = 15 * time.Minute
	}

	return &PromptScheduler{
		prompter: prompter,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger.With().Str("component", "prompt_scheduler").Logger(),
	}
}

// Start runs the sweep immediately and then on every tick
func (s *PromptScheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("starting prompt scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-s.stopCh:
			s.logger.Info().Msg("stopping prompt scheduler")
			return
		case <-ctx.Done():
			s.logger.Info().Msg("context cancelled, stopping prompt scheduler")
			return
		}
	}
}

// Stop stops the scheduler
func (s *PromptScheduler) Stop() {
	close(s.stopCh)
}

func (s *PromptScheduler) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("prompt sweep panicked")
		}
	}()

	created, err := s.prompter.Sweep(ctx)
	if err != nil {
		s.logger.Error().Stack().Err(err).Msg("prompt sweep failed")
		return
	}
	if created > 0 {
		s.logger.Info().Int("created", created).Msg("daily prompts generated")
	}
}
