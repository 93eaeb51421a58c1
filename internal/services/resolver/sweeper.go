package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/voyager/internal/interfaces"
)

// Sweeper periodically purges expired entries from the durable place
// cache on a cron schedule.
type Sweeper struct {
	cacheStorage interfaces.PlaceCacheStorage
	cron         *cron.Cron
	schedule     string
	logger       arbor.ILogger
}

// NewSweeper creates a new cache sweeper
func NewSweeper(schedule string, cacheStorage interfaces.PlaceCacheStorage, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		cacheStorage: cacheStorage,
		cron:         cron.New(),
		schedule:     schedule,
		logger:       logger,
	}
}

// Start registers the sweep job and begins the scheduler
func (s *Sweeper) Start() error {
	schedule := s.schedule
	if schedule == "" {
		schedule = "0 * * * *" // hourly
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	s.cron.Start()

	s.logger.Info().
		Str("schedule", schedule).
		Msg("Place cache sweeper started")

	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Debug().Msg("Place cache sweeper stopped")
}

// sweep removes expired cache entries
func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.cacheStorage.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Place cache sweep failed")
		return
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Place cache sweep completed")
	} else {
		s.logger.Debug().Msg("Place cache sweep found nothing to remove")
	}
}
