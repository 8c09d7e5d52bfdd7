package assembler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/respondeo/internal/models"
)

// NoEvidence is the explicit marker handed to the synthesizer when
// retrieval produced nothing. The synthesizer must treat it as an
// automatic unanswerable result without calling the model.
const NoEvidence = "[NO EVIDENCE FOUND]"

// Fragment is one selected piece of evidence with its attribution tag.
type Fragment struct {
	Tag        string // "S1", "S2", ... stable within one context
	SourceFile string
	Section    string
	Text       string
}

// Context is the bounded evidence window for one synthesis call.
type Context struct {
	Fragments []Fragment
	Empty     bool
}

// Sources returns the set of source files present in the context,
// used by the synthesizer to verify citations.
func (c *Context) Sources() map[string]models.Citation {
	sources := make(map[string]models.Citation, len(c.Fragments))
	for _, f := range c.Fragments {
		if _, ok := sources[f.SourceFile]; !ok {
			sources[f.SourceFile] = models.Citation{SourceFile: f.SourceFile, Section: f.Section}
		}
	}
	return sources
}

// Render produces the context block embedded in the synthesis prompt.
func (c *Context) Render() string {
	if c.Empty {
		return NoEvidence
	}
	var b strings.Builder
	for i, f := range c.Fragments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s - %s\n%s\n", f.Tag, f.SourceFile, f.Section, f.Text)
	}
	return b.String()
}

// Assembler trims an ordered snippet sequence into a context that fits
// the configured character budget, preserving relevance order and
// never splitting a snippet mid-sentence.
type Assembler struct {
	budget int
}

// New creates an assembler with the given character budget.
func New(budget int) *Assembler {
	return &Assembler{budget: budget}
}

// Assemble selects snippets in the given order until the budget is
// exhausted. A snippet that does not fit whole is cut back to the last
// complete sentence that fits; if not even its first sentence fits,
// it is skipped and selection continues with later, shorter snippets.
func (a *Assembler) Assemble(snippets []models.EvidenceSnippet) *Context {
	if len(snippets) == 0 {
		return &Context{Empty: true}
	}

	ctx := &Context{}
	remaining := a.budget
	for _, snippet := range snippets {
		if remaining <= 0 {
			break
		}
		text := strings.TrimSpace(snippet.Text)
		if text == "" {
			continue
		}
		if len(text) > remaining {
			text = truncateAtSentence(text, remaining)
			if text == "" {
				continue
			}
		}
		ctx.Fragments = append(ctx.Fragments, Fragment{
			Tag:        fmt.Sprintf("S%d", len(ctx.Fragments)+1),
			SourceFile: snippet.SourceFile,
			Section:    snippet.Section,
			Text:       text,
		})
		remaining -= len(text)
	}

	if len(ctx.Fragments) == 0 {
		return &Context{Empty: true}
	}
	return ctx
}

var sentenceEnd = regexp.MustCompile(`[.!?]['")\]]?(\s|$)`)

// truncateAtSentence returns the longest prefix of text that ends on a
// sentence boundary and fits within limit. Empty when no complete
// sentence fits.
func truncateAtSentence(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	best := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if loc[1] > limit {
			break
		}
		best = loc[1]
	}
	return strings.TrimSpace(text[:best])
}
