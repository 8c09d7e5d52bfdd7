package search

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// DisabledService is the no-corpus mode: every query returns zero
// evidence, which makes every question resolve as unanswerable or
// declined. Useful for dry runs of extraction and document assembly.
type DisabledService struct {
	logger arbor.ILogger
}

// NewDisabledService creates a search service that returns no results.
func NewDisabledService(logger arbor.ILogger) *DisabledService {
	logger.Warn().Msg("Search is disabled; all questions will resolve without evidence")
	return &DisabledService{logger: logger}
}

// Query always returns an empty result set.
func (s *DisabledService) Query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	return nil, nil
}

// HealthCheck always succeeds.
func (s *DisabledService) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *DisabledService) Close() error {
	return nil
}
