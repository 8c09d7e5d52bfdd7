package retrieval

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Client queries the search collaborator for a question's evidence.
// The question's category selects which index collections are queried
// first; an unfiltered fallback query runs only when the
// category-specific query returns nothing above threshold. Calls are
// idempotent and uncached: every question gets an independent query.
type Client struct {
	search      interfaces.SearchService
	collections map[string][]string
	topK        int
	minScore    float64
	logger      arbor.ILogger
}

// NewClient creates a retrieval client over the search collaborator.
func NewClient(search interfaces.SearchService, cfg *common.Config, logger arbor.ILogger) *Client {
	return &Client{
		search:      search,
		collections: cfg.Search.Collections,
		topK:        cfg.Pipeline.TopK,
		minScore:    cfg.Pipeline.MinScore,
		logger:      logger,
	}
}

// Retrieve returns ranked evidence snippets for the question, bounded
// by the configured top-K and minimum score. Collaborator failure is
// wrapped in RetrievalError; the caller degrades it to zero evidence.
func (c *Client) Retrieve(ctx context.Context, question *models.Question) ([]models.EvidenceSnippet, error) {
	opts := interfaces.QueryOptions{
		Collections: c.collections[string(question.Category)],
		TopK:        c.topK,
		MinScore:    c.minScore,
	}

	snippets, err := c.query(ctx, question.Text, opts)
	if err != nil {
		return nil, &models.RetrievalError{QuestionID: question.ID, Err: err}
	}

	// Category-specific collections came up empty: widen to all sources.
	if len(snippets) == 0 && len(opts.Collections) > 0 {
		c.logger.Debug().
			Str("question_id", question.ID).
			Str("category", string(question.Category)).
			Msg("No category evidence above threshold, querying all collections")

		opts.Collections = nil
		snippets, err = c.query(ctx, question.Text, opts)
		if err != nil {
			return nil, &models.RetrievalError{QuestionID: question.ID, Err: err}
		}
	}

	c.logger.Debug().
		Str("question_id", question.ID).
		Int("snippets", len(snippets)).
		Msg("Evidence retrieved")

	return snippets, nil
}

// query runs one collaborator call and enforces the score threshold
// and count bound locally, for backends that only honor one of them.
func (c *Client) query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	snippets, err := c.search.Query(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	qualified := make([]models.EvidenceSnippet, 0, len(snippets))
	for _, snippet := range snippets {
		if snippet.Score < c.minScore {
			continue
		}
		qualified = append(qualified, snippet)
		if len(qualified) == c.topK {
			break
		}
	}
	return qualified, nil
}
