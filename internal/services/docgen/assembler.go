package docgen

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// Assembler renders the resolved question/answer set into the output
// document. Ordering follows the extraction-time OrderIndex, with
// conditional children pulled adjacent to their parents regardless of
// the order category-driven processing finished in. The rendered body
// is deterministic: identical inputs yield byte-identical text, with
// the generation timestamp and identifiers kept out of the comparable
// body.
type Assembler struct {
	logger arbor.ILogger
}

// NewAssembler creates a document assembler
func NewAssembler(logger arbor.ILogger) *Assembler {
	return &Assembler{logger: logger}
}

// Build validates every answer record against the status invariants
// and produces the ordered document. A malformed record is an internal
// invariant violation and is surfaced as AssemblyError, never
// silently repaired.
func (a *Assembler) Build(title string, questions []models.Question, answers map[string]*models.AnswerRecord) (*models.ResponseDocument, error) {
	entries := make([]models.DocumentEntry, 0, len(questions))
	for _, q := range questions {
		record, ok := answers[q.ID]
		if !ok {
			return nil, &models.AssemblyError{QuestionID: q.ID, Reason: "no answer record for question"}
		}
		if err := record.Validate(); err != nil {
			a.logger.Error().Err(err).Str("question_id", q.ID).Msg("Answer record violates assembly invariants")
			return nil, err
		}
		entries = append(entries, models.DocumentEntry{Question: q, Answer: *record})
	}

	orderEntries(entries)

	return &models.ResponseDocument{
		ID:          common.NewDocumentID(),
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Entries:     entries,
	}, nil
}

// orderEntries sorts by OrderIndex, then stitches each conditional
// child directly after its parent. Extraction assigns children a
// higher OrderIndex than their parent, so a stable pass suffices.
func orderEntries(entries []models.DocumentEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Question.OrderIndex < entries[j].Question.OrderIndex
	})

	ordered := make([]models.DocumentEntry, 0, len(entries))
	childrenOf := make(map[string][]models.DocumentEntry)
	for _, e := range entries {
		if e.Question.ParentID != "" {
			childrenOf[e.Question.ParentID] = append(childrenOf[e.Question.ParentID], e)
		}
	}
	for _, e := range entries {
		if e.Question.ParentID != "" {
			continue
		}
		ordered = append(ordered, e)
		ordered = append(ordered, childrenOf[e.Question.ID]...)
	}
	copy(entries, ordered)
}

// RenderMarkdown produces the full document: header with generation
// metadata, then the deterministic body.
func (a *Assembler) RenderMarkdown(doc *models.ResponseDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "Generated on: %s\n\n", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Document ID: %s\n\n", doc.ID)
	b.WriteString("---\n\n")
	b.WriteString(RenderBody(doc))

	if len(doc.Warnings) > 0 {
		b.WriteString("\n## Processing Warnings\n\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// RenderBody renders the comparable document body: questions, answers
// and citation footnotes, no timestamps or identifiers.
func RenderBody(doc *models.ResponseDocument) string {
	var b strings.Builder
	number := 0
	for _, entry := range doc.Entries {
		q := entry.Question
		record := entry.Answer

		if q.ParentID == "" {
			number++
			fmt.Fprintf(&b, "## %d. %s\n\n", number, q.Text)
		} else {
			fmt.Fprintf(&b, "### %s\n\n", q.Text)
		}

		b.WriteString(record.AnswerText)
		b.WriteString("\n\n")

		switch record.Status {
		case models.StatusAnswered:
			b.WriteString("Sources:\n")
			for _, c := range record.Citations {
				if c.Section != "" {
					fmt.Fprintf(&b, "- %s (%s)\n", c.SourceFile, c.Section)
				} else {
					fmt.Fprintf(&b, "- %s\n", c.SourceFile)
				}
			}
			b.WriteString("\n")
		case models.StatusUnanswerable:
			b.WriteString("*Status: no supporting evidence found.*\n\n")
		case models.StatusDeclined:
			b.WriteString("*Status: out of scope.*\n\n")
		}
	}
	return b.String()
}
