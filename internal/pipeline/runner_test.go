package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/docgen"
)

// fakeSearch serves canned snippets for questions containing a keyword.
type fakeSearch struct {
	mu       sync.Mutex
	snippets map[string][]models.EvidenceSnippet
	calls    int
}

func (f *fakeSearch) Query(ctx context.Context, text string, opts interfaces.QueryOptions) ([]models.EvidenceSnippet, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	lower := strings.ToLower(text)
	for keyword, snippets := range f.snippets {
		if strings.Contains(lower, keyword) {
			return snippets, nil
		}
	}
	return nil, nil
}

func (f *fakeSearch) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeSearch) Close() error                          { return nil }

// fakeLLM replies from a keyword table and counts calls.
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	calls   int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	prompt := strings.ToLower(messages[len(messages)-1].Content)
	for keyword, reply := range f.replies {
		if strings.Contains(prompt, keyword) {
			return reply, nil
		}
	}
	return "", errors.New("no canned reply for prompt")
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeLLM) Close() error                          { return nil }

type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{objects: make(map[string][]byte)}
}

func (f *fakeArtifacts) Put(ctx context.Context, name string, content []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("storage down")
	}
	f.objects[name] = content
	return name, nil
}

func (f *fakeArtifacts) Get(ctx context.Context, name string) (*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[name]
	if !ok {
		return nil, errors.New("artifact not found")
	}
	return &models.Artifact{Name: name, Content: content}, nil
}

func (f *fakeArtifacts) List(ctx context.Context, prefix string) ([]*models.Artifact, error) {
	return nil, nil
}

func (f *fakeArtifacts) Delete(ctx context.Context, name string) error { return nil }

func (f *fakeArtifacts) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []interfaces.ProgressEvent
}

func (r *recordingSink) Publish(event interfaces.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

func testConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Pipeline.Concurrency = 2
	cfg.Pipeline.MaxSynthesisRetries = 0
	cfg.Pipeline.SynthesisBackoff = "1ms"
	return cfg
}

func esgSnippets() []models.EvidenceSnippet {
	return []models.EvidenceSnippet{
		{SourceFile: "esg_policy.pdf", Section: "2.1", Text: "The fund maintains an ESG policy reviewed annually.", Score: 0.9},
	}
}

const esgReply = `{"answer": "The fund maintains an ESG policy reviewed annually.", "unanswerable": false, "citations": ["S1"]}`

func newTestRunner(search *fakeSearch, llm *fakeLLM, artifacts *fakeArtifacts, sink interfaces.ProgressSink) *Runner {
	return NewRunner(testConfig(), search, llm, artifacts, sink, arbor.NewLogger())
}

func TestRunBatchAnsweredQuestion(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{"esg": esgSnippets()}}
	llm := &fakeLLM{replies: map[string]string{"esg": esgReply}}
	artifacts := newFakeArtifacts()
	sink := &recordingSink{}
	runner := newTestRunner(search, llm, artifacts, sink)

	result, err := runner.RunBatch(context.Background(), []byte("1. What is your ESG policy?\n"), "text")
	require.NoError(t, err)

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, models.StatusAnswered, result.Statuses[0].Status)
	assert.Equal(t, models.CategoryESG, result.Statuses[0].Category)
	assert.NotEmpty(t, result.DocumentRef)
	assert.Contains(t, artifacts.objects, result.DocumentRef)

	stages := sink.stages()
	assert.Contains(t, stages, "extracted")
	assert.Contains(t, stages, "question_done")
	assert.Contains(t, stages, "assembled")
	assert.Contains(t, stages, "published")
}

func TestRunBatchOffDomainDeclinedWithoutModelCall(t *testing.T) {
	search := &fakeSearch{}
	llm := &fakeLLM{}
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	result, err := runner.RunBatch(context.Background(), []byte("1. What is the capital of France?\n"), "text")
	require.NoError(t, err)

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, models.StatusDeclined, result.Statuses[0].Status)
	assert.Zero(t, llm.callCount())

	entry := result.Document.Entries[0]
	assert.Equal(t, models.DeclinedMessage, entry.Answer.AnswerText)
	assert.Empty(t, entry.Answer.Citations)
}

func TestRunBatchOnDomainNoEvidenceUnanswerable(t *testing.T) {
	search := &fakeSearch{}
	llm := &fakeLLM{}
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	result, err := runner.RunBatch(context.Background(), []byte("1. Describe the fund's risk management process.\n"), "text")
	require.NoError(t, err)

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, models.StatusUnanswerable, result.Statuses[0].Status)
	assert.Zero(t, llm.callCount())
	assert.Equal(t, models.UnanswerableMessage, result.Document.Entries[0].Answer.AnswerText)
}

func TestRunBatchConditionalChildShortCircuits(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{
		"sanctions": {{SourceFile: "compliance.pdf", Section: "3", Text: "No regulatory sanctions have been imposed on the fund.", Score: 0.8}},
	}}
	llm := &fakeLLM{replies: map[string]string{
		"sanctions": `{"answer": "No, the fund has not been subject to regulatory sanctions.", "unanswerable": false, "condition_met": false, "citations": ["S1"]}`,
	}}
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	payload := "1. Has the fund been subject to regulatory sanctions?\nIf yes, describe each sanction.\n"
	result, err := runner.RunBatch(context.Background(), []byte(payload), "text")
	require.NoError(t, err)

	require.Len(t, result.Statuses, 2)
	assert.Equal(t, 1, llm.callCount(), "child resolves from the parent record")

	parent := result.Document.Entries[0].Answer
	child := result.Document.Entries[1].Answer
	assert.Equal(t, models.StatusAnswered, parent.Status)
	assert.Equal(t, models.StatusAnswered, child.Status)
	assert.Contains(t, child.AnswerText, "not met")
	assert.Equal(t, parent.Citations, child.Citations)
}

func TestRunBatchDuplicatesShareOneAnswer(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{"esg": esgSnippets()}}
	llm := &fakeLLM{replies: map[string]string{"esg": esgReply}}
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	payload := "1. What is your ESG policy?\n2. Name the fund administrator.\n3. Please describe your policy on ESG.\n"
	search.snippets["administrator"] = []models.EvidenceSnippet{
		{SourceFile: "operations.pdf", Section: "5", Text: "ACME Fund Services acts as administrator.", Score: 0.8},
	}
	llm.replies["administrator"] = `{"answer": "ACME Fund Services acts as administrator.", "unanswerable": false, "citations": ["S1"]}`

	result, err := runner.RunBatch(context.Background(), []byte(payload), "text")
	require.NoError(t, err)

	require.Len(t, result.Document.Entries, 3)
	first := result.Document.Entries[0].Answer
	third := result.Document.Entries[2].Answer

	assert.Equal(t, first.AnswerText, third.AnswerText)
	assert.Equal(t, first.Citations, third.Citations)
	assert.Equal(t, first.ConsistencyGroupID, third.ConsistencyGroupID)
	assert.NotEmpty(t, first.ConsistencyGroupID)
	assert.Equal(t, 2, llm.callCount(), "one call per consistency group")
}

func TestRunBatchIsIdempotentPerBody(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{"esg": esgSnippets()}}
	llm := &fakeLLM{replies: map[string]string{"esg": esgReply}}
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	payload := []byte("1. What is your ESG policy?\n2. What is the capital of France?\n")
	first, err := runner.RunBatch(context.Background(), payload, "text")
	require.NoError(t, err)
	second, err := runner.RunBatch(context.Background(), payload, "text")
	require.NoError(t, err)

	assert.NotEqual(t, first.BatchID, second.BatchID)
	assert.Equal(t, docgen.RenderBody(first.Document), docgen.RenderBody(second.Document))
}

func TestRunBatchExtractionFailureAborts(t *testing.T) {
	runner := newTestRunner(&fakeSearch{}, &fakeLLM{}, newFakeArtifacts(), nil)

	result, err := runner.RunBatch(context.Background(), []byte("no questions in this prose at all"), "text")

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Nil(t, result)
}

func TestRunBatchCancelledContext(t *testing.T) {
	runner := newTestRunner(&fakeSearch{}, &fakeLLM{}, newFakeArtifacts(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := runner.RunBatch(ctx, []byte("1. What is your ESG policy?\n"), "text")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestRunBatchPublishFailureRetainsDocument(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{"esg": esgSnippets()}}
	llm := &fakeLLM{replies: map[string]string{"esg": esgReply}}
	artifacts := newFakeArtifacts()
	artifacts.fail = true
	runner := newTestRunner(search, llm, artifacts, nil)

	result, err := runner.RunBatch(context.Background(), []byte("1. What is your ESG policy?\n"), "text")

	var publishErr *models.PublishError
	require.ErrorAs(t, err, &publishErr)
	require.NotNil(t, result, "result carries the retained document")
	assert.NotNil(t, result.Document)
	assert.Empty(t, result.DocumentRef)

	// Recovery path: re-publish the retained document once storage heals.
	artifacts.fail = false
	ref, err := runner.Publish(context.Background(), result.Document)
	require.NoError(t, err)
	assert.Contains(t, artifacts.objects, ref)
}

func TestRunBatchSynthesisFailureDegradesWithWarning(t *testing.T) {
	search := &fakeSearch{snippets: map[string][]models.EvidenceSnippet{"esg": esgSnippets()}}
	llm := &fakeLLM{} // no canned replies: every model call fails
	runner := newTestRunner(search, llm, newFakeArtifacts(), nil)

	result, err := runner.RunBatch(context.Background(), []byte("1. What is your ESG policy?\n"), "text")
	require.NoError(t, err, "per-question failure does not abort the batch")

	require.Len(t, result.Statuses, 1)
	assert.Equal(t, models.StatusUnanswerable, result.Statuses[0].Status)
	assert.NotEmpty(t, result.Statuses[0].Note)
	assert.NotEmpty(t, result.Warnings)
}
