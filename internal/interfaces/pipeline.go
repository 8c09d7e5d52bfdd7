package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// Pipeline is the exposed entry point of the answer generation
// pipeline. One call processes one questionnaire batch.
type Pipeline interface {
	// RunBatch extracts, routes, retrieves, synthesizes, assembles and
	// publishes. Per-question failures degrade to safe statuses; only
	// extraction and assembly failures abort the batch. A publish
	// failure returns both the result (document retained in memory)
	// and the error.
	RunBatch(ctx context.Context, payload []byte, format string) (*models.BatchResult, error)

	// Publish re-attempts artifact delivery for an already assembled
	// document, without re-running synthesis.
	Publish(ctx context.Context, doc *models.ResponseDocument) (string, error)
}
