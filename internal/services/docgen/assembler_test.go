package docgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/models"
)

func answered(questionID, text string, citations ...models.Citation) *models.AnswerRecord {
	return &models.AnswerRecord{
		QuestionID: questionID,
		AnswerText: text,
		Citations:  citations,
		Status:     models.StatusAnswered,
	}
}

func TestBuildOrdersByExtractionIndex(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	questions := []models.Question{
		{ID: "qst_3", OrderIndex: 2, Text: "Third question?"},
		{ID: "qst_1", OrderIndex: 0, Text: "First question?"},
		{ID: "qst_2", OrderIndex: 1, Text: "Second question?"},
	}
	answers := map[string]*models.AnswerRecord{
		"qst_1": answered("qst_1", "Answer one.", models.Citation{SourceFile: "a.pdf"}),
		"qst_2": answered("qst_2", "Answer two.", models.Citation{SourceFile: "b.pdf"}),
		"qst_3": answered("qst_3", "Answer three.", models.Citation{SourceFile: "c.pdf"}),
	}

	doc, err := a.Build("Responses", questions, answers)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 3)
	assert.Equal(t, "qst_1", doc.Entries[0].Question.ID)
	assert.Equal(t, "qst_2", doc.Entries[1].Question.ID)
	assert.Equal(t, "qst_3", doc.Entries[2].Question.ID)
	assert.NotEmpty(t, doc.ID)
	assert.False(t, doc.GeneratedAt.IsZero())
}

func TestBuildStitchesChildrenAfterParent(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	questions := []models.Question{
		{ID: "qst_2", OrderIndex: 2, Text: "Second parent?"},
		{ID: "qst_1b", OrderIndex: 1, ParentID: "qst_1", Text: "If yes, explain."},
		{ID: "qst_1", OrderIndex: 0, Text: "First parent?"},
	}
	answers := map[string]*models.AnswerRecord{
		"qst_1":  answered("qst_1", "Yes.", models.Citation{SourceFile: "a.pdf"}),
		"qst_1b": answered("qst_1b", "Details here.", models.Citation{SourceFile: "a.pdf"}),
		"qst_2":  answered("qst_2", "Answer.", models.Citation{SourceFile: "b.pdf"}),
	}

	doc, err := a.Build("Responses", questions, answers)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 3)
	assert.Equal(t, "qst_1", doc.Entries[0].Question.ID)
	assert.Equal(t, "qst_1b", doc.Entries[1].Question.ID)
	assert.Equal(t, "qst_2", doc.Entries[2].Question.ID)
}

func TestBuildMissingRecordFails(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	questions := []models.Question{{ID: "qst_1", Text: "Question?"}}
	_, err := a.Build("Responses", questions, map[string]*models.AnswerRecord{})

	var assemblyErr *models.AssemblyError
	require.ErrorAs(t, err, &assemblyErr)
	assert.Equal(t, "qst_1", assemblyErr.QuestionID)
}

func TestBuildInvalidRecordFails(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	questions := []models.Question{{ID: "qst_1", Text: "Question?"}}
	answers := map[string]*models.AnswerRecord{
		// Answered without a citation violates the status invariants.
		"qst_1": {QuestionID: "qst_1", AnswerText: "Ungrounded.", Status: models.StatusAnswered},
	}

	_, err := a.Build("Responses", questions, answers)
	var assemblyErr *models.AssemblyError
	assert.ErrorAs(t, err, &assemblyErr)
}

func TestRenderBodyIsDeterministic(t *testing.T) {
	entries := []models.DocumentEntry{
		{
			Question: models.Question{ID: "qst_1", Text: "What is your ESG policy?"},
			Answer:   *answered("qst_1", "Reviewed annually.", models.Citation{SourceFile: "esg_policy.pdf", Section: "2.1"}),
		},
		{
			Question: models.Question{ID: "qst_2", Text: "Unknown detail?"},
			Answer:   *models.NewUnanswerable("qst_2", ""),
		},
	}

	doc1 := &models.ResponseDocument{ID: "doc_a", GeneratedAt: time.Now().UTC(), Title: "Responses", Entries: entries}
	doc2 := &models.ResponseDocument{ID: "doc_b", GeneratedAt: time.Now().UTC().Add(time.Hour), Title: "Responses", Entries: entries}

	assert.Equal(t, RenderBody(doc1), RenderBody(doc2), "body excludes identifiers and timestamps")
}

func TestRenderBodyContent(t *testing.T) {
	doc := &models.ResponseDocument{
		Entries: []models.DocumentEntry{
			{
				Question: models.Question{ID: "qst_1", Text: "What is your ESG policy?"},
				Answer:   *answered("qst_1", "Reviewed annually.", models.Citation{SourceFile: "esg_policy.pdf", Section: "2.1"}),
			},
			{
				Question: models.Question{ID: "qst_1b", ParentID: "qst_1", Text: "If yes, explain."},
				Answer:   *answered("qst_1b", "The policy covers screening.", models.Citation{SourceFile: "esg_policy.pdf"}),
			},
			{
				Question: models.Question{ID: "qst_2", Text: "Unknown detail?"},
				Answer:   *models.NewUnanswerable("qst_2", ""),
			},
			{
				Question: models.Question{ID: "qst_3", Text: "Capital of France?"},
				Answer:   *models.NewDeclined("qst_3"),
			},
		},
	}

	body := RenderBody(doc)

	assert.Contains(t, body, "## 1. What is your ESG policy?")
	assert.Contains(t, body, "### If yes, explain.")
	assert.Contains(t, body, "## 2. Unknown detail?", "children do not consume numbering")
	assert.Contains(t, body, "- esg_policy.pdf (2.1)")
	assert.Contains(t, body, models.UnanswerableMessage)
	assert.Contains(t, body, "*Status: no supporting evidence found.*")
	assert.Contains(t, body, "*Status: out of scope.*")
}

func TestRenderMarkdownHeaderAndWarnings(t *testing.T) {
	a := NewAssembler(arbor.NewLogger())

	doc := &models.ResponseDocument{
		ID:          "doc_1",
		Title:       "Due Diligence Questionnaire Responses",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Entries: []models.DocumentEntry{{
			Question: models.Question{ID: "qst_1", Text: "Question?"},
			Answer:   *answered("qst_1", "Answer.", models.Citation{SourceFile: "a.pdf"}),
		}},
		Warnings: []string{"synthesis retried for qst_1"},
	}

	md := a.RenderMarkdown(doc)

	assert.Contains(t, md, "# Due Diligence Questionnaire Responses")
	assert.Contains(t, md, "Generated on: 2026-03-01 12:00:00 UTC")
	assert.Contains(t, md, "Document ID: doc_1")
	assert.Contains(t, md, "## Processing Warnings")
	assert.Contains(t, md, "- synthesis retried for qst_1")
}
