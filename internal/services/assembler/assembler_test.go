package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/respondeo/internal/models"
)

func TestAssembleEmptyInput(t *testing.T) {
	ctx := New(1000).Assemble(nil)
	assert.True(t, ctx.Empty)
	assert.Equal(t, NoEvidence, ctx.Render())
}

func TestAssembleTagsFollowRelevanceOrder(t *testing.T) {
	snippets := []models.EvidenceSnippet{
		{SourceFile: "esg_policy.pdf", Section: "2.1", Text: "The fund maintains an ESG policy.", Score: 0.9},
		{SourceFile: "handbook.pdf", Section: "intro", Text: "The policy is reviewed annually.", Score: 0.7},
	}

	ctx := New(1000).Assemble(snippets)
	require.Len(t, ctx.Fragments, 2)
	assert.Equal(t, "S1", ctx.Fragments[0].Tag)
	assert.Equal(t, "esg_policy.pdf", ctx.Fragments[0].SourceFile)
	assert.Equal(t, "S2", ctx.Fragments[1].Tag)

	rendered := ctx.Render()
	assert.Contains(t, rendered, "[S1] esg_policy.pdf")
	assert.Contains(t, rendered, "[S2] handbook.pdf")
}

func TestAssembleRespectsBudget(t *testing.T) {
	long := strings.Repeat("This sentence fills space. ", 20) // ~540 chars
	snippets := []models.EvidenceSnippet{
		{SourceFile: "a.pdf", Text: long, Score: 0.9},
		{SourceFile: "b.pdf", Text: long, Score: 0.8},
	}

	ctx := New(600).Assemble(snippets)
	total := 0
	for _, f := range ctx.Fragments {
		total += len(f.Text)
	}
	assert.LessOrEqual(t, total, 600)
}

func TestAssembleTruncatesAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one is cut."
	snippets := []models.EvidenceSnippet{{SourceFile: "a.pdf", Text: text, Score: 0.9}}

	ctx := New(50).Assemble(snippets)
	require.Len(t, ctx.Fragments, 1)
	assert.Equal(t, "First sentence here. Second sentence follows.", ctx.Fragments[0].Text)
}

func TestAssembleSkipsOversizedSnippetAndContinues(t *testing.T) {
	snippets := []models.EvidenceSnippet{
		{SourceFile: "big.pdf", Text: strings.Repeat("x", 200) + " no boundary fits", Score: 0.9},
		{SourceFile: "small.pdf", Text: "Short and complete.", Score: 0.5},
	}

	ctx := New(60).Assemble(snippets)
	require.Len(t, ctx.Fragments, 1)
	assert.Equal(t, "small.pdf", ctx.Fragments[0].SourceFile)
	assert.Equal(t, "S1", ctx.Fragments[0].Tag)
}

func TestAssembleAllSkippedIsEmpty(t *testing.T) {
	snippets := []models.EvidenceSnippet{
		{SourceFile: "big.pdf", Text: strings.Repeat("y", 500), Score: 0.9},
	}
	ctx := New(100).Assemble(snippets)
	assert.True(t, ctx.Empty)
}

func TestTruncateAtSentenceKeepsClosingQuote(t *testing.T) {
	text := `The policy states "reviewed annually." More follows that will not fit at all.`
	got := truncateAtSentence(text, 45)
	assert.Equal(t, `The policy states "reviewed annually."`, got)
}

func TestContextSources(t *testing.T) {
	ctx := &Context{Fragments: []Fragment{
		{Tag: "S1", SourceFile: "a.pdf", Section: "1"},
		{Tag: "S2", SourceFile: "a.pdf", Section: "2"},
		{Tag: "S3", SourceFile: "b.pdf", Section: "1"},
	}}

	sources := ctx.Sources()
	assert.Len(t, sources, 2)
	assert.Equal(t, "1", sources["a.pdf"].Section, "first occurrence wins")
}
