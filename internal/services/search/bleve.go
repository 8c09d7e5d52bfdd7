package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// BleveService implements SearchService over a local bleve index. It
// is the zero-infrastructure mode: no external search cluster needed.
type BleveService struct {
	mu     sync.RWMutex
	index  bleve.Index
	logger arbor.ILogger
}

// NewBleveService opens the index at the configured path, creating an
// empty one when it does not exist yet.
func NewBleveService(cfg *common.SearchConfig, logger arbor.ILogger) (*BleveService, error) {
	index, err := bleve.Open(cfg.IndexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		logger.Info().Str("path", cfg.IndexPath).Msg("Creating new bleve index")
		index, err = bleve.New(cfg.IndexPath, bleve.NewIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index at %s: %w", cfg.IndexPath, err)
	}

	logger.Info().Str("path", cfg.IndexPath).Msg("Bleve search service initialized")
	return &BleveService{index: index, logger: logger}, nil
}

// Query matches the question text against fragment content, restricted
// to the requested collections when given.
func (s *BleveService) Query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, fmt.Errorf("bleve index is closed")
	}

	size := opts.TopK
	if size <= 0 {
		size = 10
	}

	match := bleve.NewMatchQuery(text)
	match.SetField("content")

	var q query.Query = match
	if len(opts.Collections) > 0 {
		terms := make([]query.Query, 0, len(opts.Collections))
		for _, collection := range opts.Collections {
			tq := bleve.NewTermQuery(collection)
			tq.SetField("collection")
			terms = append(terms, tq)
		}
		q = bleve.NewConjunctionQuery(match, bleve.NewDisjunctionQuery(terms...))
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{"*"}

	result, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	snippets := make([]models.EvidenceSnippet, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if opts.MinScore > 0 && hit.Score < opts.MinScore {
			continue
		}
		snippet := models.EvidenceSnippet{Score: hit.Score}
		if v, ok := hit.Fields["source_file"].(string); ok {
			snippet.SourceFile = v
		}
		if v, ok := hit.Fields["section"].(string); ok {
			snippet.Section = v
		}
		if v, ok := hit.Fields["content"].(string); ok {
			snippet.Text = v
		}
		snippets = append(snippets, snippet)
	}
	return snippets, nil
}

// IndexDocument writes an evidence fragment into the local index.
func (s *BleveService) IndexDocument(ctx context.Context, doc EvidenceDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return fmt.Errorf("bleve index is closed")
	}
	if err := s.index.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("index doc %s: %w", doc.ID, err)
	}
	return nil
}

// HealthCheck verifies the index is open and countable.
func (s *BleveService) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return fmt.Errorf("bleve index is closed")
	}
	if _, err := s.index.DocCount(); err != nil {
		return fmt.Errorf("bleve index unavailable: %w", err)
	}
	return nil
}

// Close releases the index.
func (s *BleveService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
