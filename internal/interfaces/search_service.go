package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// QueryOptions narrows a corpus query.
type QueryOptions struct {
	// Collections restricts the query to the named index partitions.
	// Empty means all collections.
	Collections []string

	// TopK caps the number of returned snippets.
	TopK int

	// MinScore drops snippets below this relevance score.
	MinScore float64
}

// SearchService is the search collaborator contract: ranked evidence
// snippets with source attribution for a question text. The index is
// assumed pre-built; this service never writes to it.
type SearchService interface {
	// Query returns snippets ordered by descending relevance.
	Query(ctx context.Context, text string, opts QueryOptions) ([]models.EvidenceSnippet, error)

	// HealthCheck verifies the index is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases index resources.
	Close() error
}
