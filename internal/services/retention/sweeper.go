package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Sweeper periodically removes published artifacts older than the
// configured retention age.
type Sweeper struct {
	artifacts interfaces.ArtifactStorage
	cron      *cron.Cron
	maxAge    time.Duration
	logger    arbor.ILogger
}

// NewSweeper creates a retention sweeper from configuration.
func NewSweeper(cfg *common.RetentionConfig, artifacts interfaces.ArtifactStorage, logger arbor.ILogger) (*Sweeper, error) {
	maxAge, err := time.ParseDuration(cfg.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid retention max_age %q: %w", cfg.MaxAge, err)
	}

	return &Sweeper{
		artifacts: artifacts,
		cron:      cron.New(cron.WithSeconds()),
		maxAge:    maxAge,
		logger:    logger,
	}, nil
}

// Start begins the scheduled sweep.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		// Default: daily at 03:00
		schedule = "0 0 3 * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Dur("max_age", s.maxAge).
		Msg("Artifact retention sweeper started")
	return nil
}

// Stop stops the sweeper.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Artifact retention sweeper stopped")
}

// RunNow triggers an immediate sweep.
func (s *Sweeper) RunNow() {
	s.logger.Info().Msg("Triggering immediate retention sweep")
	go s.runSweep()
}

func (s *Sweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.maxAge)
	deleted, err := s.artifacts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention sweep failed")
		return
	}

	s.logger.Info().
		Int("deleted", deleted).
		Str("cutoff", cutoff.Format(time.RFC3339)).
		Msg("Retention sweep completed")
}
