package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// ElasticService implements SearchService against an Elasticsearch
// index of evidence fragments.
type ElasticService struct {
	es     *elasticsearch.Client
	index  string
	logger arbor.ILogger
}

// NewElasticService creates an Elasticsearch-backed search service.
func NewElasticService(cfg *common.SearchConfig, logger arbor.ILogger) (*ElasticService, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("index", cfg.Index).
		Msg("Elasticsearch search service initialized")

	return &ElasticService{es: es, index: cfg.Index, logger: logger}, nil
}

// Query runs a multi_match over content and section, filtered to the
// requested collections, and maps hits to evidence snippets.
func (s *ElasticService) Query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	size := opts.TopK
	if size <= 0 {
		size = 10
	}

	boolQuery := map[string]any{
		"must": []map[string]any{
			{
				"multi_match": map[string]any{
					"query":  text,
					"fields": []string{"content", "section^2"},
				},
			},
		},
	}
	if len(opts.Collections) > 0 {
		boolQuery["filter"] = []map[string]any{
			{
				"terms": map[string]any{
					"collection": opts.Collections,
				},
			},
		}
	}

	body := map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
	}
	if opts.MinScore > 0 {
		body["min_score"] = opts.MinScore
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64          `json:"_score"`
				Source EvidenceDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	snippets := make([]models.EvidenceSnippet, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		snippets = append(snippets, models.EvidenceSnippet{
			SourceFile: hit.Source.SourceFile,
			Section:    hit.Source.Section,
			Text:       hit.Source.Content,
			Score:      hit.Score,
		})
	}
	return snippets, nil
}

// HealthCheck pings the cluster.
func (s *ElasticService) HealthCheck(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Close is a no-op; the underlying transport holds no resources that
// need explicit release.
func (s *ElasticService) Close() error {
	return nil
}
