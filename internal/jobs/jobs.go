// Package jobs runs background housekeeping on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TokenPurger deletes refresh tokens that are revoked or expired before now.
type TokenPurger interface {
	PurgeRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	purger TokenPurger
	log    zerolog.Logger
	now    func() time.Time
}

func NewScheduler(purger TokenPurger, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		purger: purger,
		log:    log.With().Str("component", "jobs").Logger(),
		now:    time.Now,
	}
}

// Start registers the purge job under spec (standard cron or a descriptor
// such as "@daily") and starts the runner.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.PurgeTokens(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid token purge schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", spec).Msg("token purge scheduled")
	return nil
}

// Stop halts the runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// PurgeTokens runs one purge pass.
func (s *Scheduler) PurgeTokens(ctx context.Context) int64 {
	n, err := s.purger.PurgeRefreshTokens(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("refresh token purge failed")
		return 0
	}
	s.log.Info().Int64("purged", n).Msg("refresh tokens purged")
	return n
}
