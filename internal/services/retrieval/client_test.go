package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// mockSearchService implements interfaces.SearchService for testing
type mockSearchService struct {
	queryFunc func(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error)
	calls     []interfaces.QueryOptions
}

func (m *mockSearchService) Query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	m.calls = append(m.calls, opts)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, text, opts)
	}
	return nil, nil
}

func (m *mockSearchService) HealthCheck(ctx context.Context) error { return nil }
func (m *mockSearchService) Close() error                          { return nil }

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Pipeline.TopK = 3
	cfg.Pipeline.MinScore = 0.5
	return cfg
}

func snippet(file string, score float64) models.EvidenceSnippet {
	return models.EvidenceSnippet{SourceFile: file, Section: "1", Text: "Evidence text.", Score: score}
}

func TestRetrieveUsesCategoryCollections(t *testing.T) {
	mock := &mockSearchService{
		queryFunc: func(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
			return []models.EvidenceSnippet{snippet("esg_policy.pdf", 0.9)}, nil
		},
	}
	client := NewClient(mock, testConfig(), arbor.NewLogger())

	question := &models.Question{ID: "qst_1", Text: "What is your ESG policy?", Category: models.CategoryESG}
	snippets, err := client.Retrieve(context.Background(), question)
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	require.Len(t, mock.calls, 1)
	assert.Equal(t, []string{"esg", "policies"}, mock.calls[0].Collections)
}

func TestRetrieveFallsBackToAllCollections(t *testing.T) {
	mock := &mockSearchService{}
	mock.queryFunc = func(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
		if len(opts.Collections) > 0 {
			return nil, nil
		}
		return []models.EvidenceSnippet{snippet("handbook.pdf", 0.8)}, nil
	}
	client := NewClient(mock, testConfig(), arbor.NewLogger())

	question := &models.Question{ID: "qst_1", Text: "Who is the auditor?", Category: models.CategoryESG}
	snippets, err := client.Retrieve(context.Background(), question)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "handbook.pdf", snippets[0].SourceFile)

	require.Len(t, mock.calls, 2)
	assert.NotEmpty(t, mock.calls[0].Collections)
	assert.Empty(t, mock.calls[1].Collections, "fallback query is unfiltered")
}

func TestRetrieveEnforcesScoreAndTopK(t *testing.T) {
	mock := &mockSearchService{
		queryFunc: func(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
			return []models.EvidenceSnippet{
				snippet("a.pdf", 0.9),
				snippet("b.pdf", 0.3), // below threshold
				snippet("c.pdf", 0.8),
				snippet("d.pdf", 0.7),
				snippet("e.pdf", 0.6), // beyond top-k
			}, nil
		},
	}
	client := NewClient(mock, testConfig(), arbor.NewLogger())

	question := &models.Question{ID: "qst_1", Text: "Valuation process?", Category: models.CategoryGeneral}
	snippets, err := client.Retrieve(context.Background(), question)
	require.NoError(t, err)

	require.Len(t, snippets, 3)
	assert.Equal(t, "a.pdf", snippets[0].SourceFile)
	assert.Equal(t, "c.pdf", snippets[1].SourceFile)
	assert.Equal(t, "d.pdf", snippets[2].SourceFile)
}

func TestRetrieveWrapsCollaboratorError(t *testing.T) {
	backendErr := errors.New("connection refused")
	mock := &mockSearchService{
		queryFunc: func(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
			return nil, backendErr
		},
	}
	client := NewClient(mock, testConfig(), arbor.NewLogger())

	question := &models.Question{ID: "qst_1", Text: "Anything?", Category: models.CategoryGeneral}
	_, err := client.Retrieve(context.Background(), question)
	require.Error(t, err)

	var retrievalErr *models.RetrievalError
	require.ErrorAs(t, err, &retrievalErr)
	assert.Equal(t, "qst_1", retrievalErr.QuestionID)
	assert.ErrorIs(t, err, backendErr)
}

func TestRetrieveNoEvidenceAnywhere(t *testing.T) {
	mock := &mockSearchService{}
	client := NewClient(mock, testConfig(), arbor.NewLogger())

	question := &models.Question{ID: "qst_1", Text: "Unknown topic?", Category: models.CategoryESG}
	snippets, err := client.Retrieve(context.Background(), question)
	require.NoError(t, err)
	assert.Empty(t, snippets)
	assert.Len(t, mock.calls, 2, "category query then unfiltered fallback")
}
