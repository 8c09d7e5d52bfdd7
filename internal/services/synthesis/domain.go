package synthesis

import (
	"strings"

	"github.com/ternarybob/respondeo/internal/models"
)

// domainFilter is the lexical out-of-domain signal: a question that
// shares no token with the due diligence vocabulary is off topic. The
// signal alone never declines a question; it only does so combined
// with zero retrieved evidence, which keeps on-topic questions with
// missing evidence on the unanswerable path.
type domainFilter struct {
	vocabulary map[string]bool
}

func newDomainFilter(vocabulary []string) *domainFilter {
	set := make(map[string]bool, len(vocabulary))
	for _, word := range vocabulary {
		set[strings.ToLower(word)] = true
	}
	return &domainFilter{vocabulary: set}
}

// offDomain reports whether the question text carries no domain token.
func (f *domainFilter) offDomain(text string) bool {
	if len(f.vocabulary) == 0 {
		return false
	}
	for tok := range models.CanonicalTokens(text) {
		if f.vocabulary[tok] {
			return false
		}
	}
	return true
}
