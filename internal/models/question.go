package models

import (
	"regexp"
	"sort"
	"strings"
)

// Category is a fixed sourcing-scope label. It determines which corpus
// collections are queried for a question and in what priority order.
type Category string

const (
	// CategoryUnclassified is the state of a question before routing.
	CategoryUnclassified Category = "unclassified"
	// CategoryGeneral is the fallback for questions no rule matches.
	CategoryGeneral       Category = "general"
	CategoryFundraising   Category = "fundraising"
	CategoryESG           Category = "esg"
	CategoryPreLaunch     Category = "pre_launch"
	CategoryPostLaunch    Category = "post_launch"
	CategoryGoverningDocs Category = "governing_docs"
)

// Categories lists every routable category. Routing rules may only
// reference members of this set.
var Categories = []Category{
	CategoryGeneral,
	CategoryFundraising,
	CategoryESG,
	CategoryPreLaunch,
	CategoryPostLaunch,
	CategoryGoverningDocs,
}

// Question is a single question unit extracted from a questionnaire.
// OrderIndex is fixed at extraction time and used only for final
// document ordering, never for processing order. Category is the only
// field mutated after extraction (by the category router).
type Question struct {
	ID           string   `json:"id"`
	OrderIndex   int      `json:"order_index"`
	Text         string   `json:"text"`
	ParentID     string   `json:"parent_id,omitempty"` // set for conditional sub-questions
	Category     Category `json:"category"`
	CanonicalKey string   `json:"canonical_key"`
}

// IsConditional reports whether the question is a dependent
// sub-question ("If yes, explain...") of another question.
func (q *Question) IsConditional() bool {
	return q.ParentID != ""
}

var (
	canonicalStrip    = regexp.MustCompile(`[^a-z0-9\s]+`)
	canonicalSpace    = regexp.MustCompile(`\s+`)
	canonicalStopword = map[string]bool{
		"a": true, "an": true, "and": true, "are": true, "can": true,
		"could": true, "do": true, "does": true, "for": true, "has": true,
		"have": true, "in": true, "is": true, "it": true, "of": true,
		"on": true, "or": true, "our": true, "please": true, "provide": true,
		"describe": true, "detail": true, "details": true, "explain": true,
		"the": true, "their": true, "to": true, "what": true, "which": true,
		"with": true, "would": true, "you": true, "your": true, "yours": true,
	}
)

// CanonicalKey normalizes question text for duplicate detection:
// lowercase, punctuation stripped, filler words removed, tokens
// sorted. "What is your ESG policy?" and "Please describe your policy
// on ESG." both reduce to "esg policy".
func CanonicalKey(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	lowered = canonicalStrip.ReplaceAllString(lowered, " ")
	tokens := canonicalSpace.Split(lowered, -1)

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || canonicalStopword[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// CanonicalTokens returns the set of canonical-key tokens, used by the
// consistency tracker's near-duplicate similarity metric.
func CanonicalTokens(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(CanonicalKey(text)) {
		set[tok] = true
	}
	return set
}
