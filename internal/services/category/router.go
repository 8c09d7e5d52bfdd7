package category

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// Router classifies questions into the closed category set using the
// configured keyword table. Classification is pure data lookup: it
// never blocks on external calls and never fails: anything no rule
// matches lands in the general category.
type Router struct {
	rules  []common.CategoryRule
	logger arbor.ILogger
}

// NewRouter creates a router over the configured rule table. Rules
// referencing unknown categories are dropped with a warning so a
// config typo cannot widen the category set.
func NewRouter(rules []common.CategoryRule, logger arbor.ILogger) *Router {
	known := make(map[models.Category]bool, len(models.Categories))
	for _, c := range models.Categories {
		known[c] = true
	}

	kept := make([]common.CategoryRule, 0, len(rules))
	for _, rule := range rules {
		if !known[models.Category(rule.Category)] {
			logger.Warn().Str("category", rule.Category).Msg("Dropping routing rule for unknown category")
			continue
		}
		kept = append(kept, rule)
	}

	return &Router{rules: kept, logger: logger}
}

// match is a resolved rule hit for one question text.
type match struct {
	category models.Category
	priority int
}

// Route assigns a category to every question in place. Children
// inherit their parent's category unless their own text matches a rule
// with priority at least the parent rule's. Questions must arrive with
// parents preceding children, which extraction order guarantees.
func (r *Router) Route(questions []models.Question) {
	byID := make(map[string]*models.Question, len(questions))
	parentPriority := make(map[string]int, len(questions))

	for i := range questions {
		q := &questions[i]
		byID[q.ID] = q

		own, matched := r.classify(q.Text)

		if q.ParentID == "" {
			if matched {
				q.Category = own.category
				parentPriority[q.ID] = own.priority
			} else {
				q.Category = models.CategoryGeneral
				parentPriority[q.ID] = 0
			}
			continue
		}

		parent, ok := byID[q.ParentID]
		if !ok {
			// Orphaned child: classify standalone.
			if matched {
				q.Category = own.category
			} else {
				q.Category = models.CategoryGeneral
			}
			continue
		}

		if matched && own.priority >= parentPriority[parent.ID] && own.category != parent.Category {
			r.logger.Debug().
				Str("question_id", q.ID).
				Str("parent_category", string(parent.Category)).
				Str("category", string(own.category)).
				Msg("Conditional question overrides inherited category")
			q.Category = own.category
		} else {
			q.Category = parent.Category
		}
	}
}

// classify returns the winning rule for a question text. Ties on
// priority are broken by rule order, which is fixed in configuration,
// so classification is deterministic.
func (r *Router) classify(text string) (match, bool) {
	lowered := strings.ToLower(text)

	best := match{}
	found := false
	for _, rule := range r.rules {
		for _, keyword := range rule.Keywords {
			if !strings.Contains(lowered, strings.ToLower(keyword)) {
				continue
			}
			if !found || rule.Priority > best.priority {
				best = match{category: models.Category(rule.Category), priority: rule.Priority}
				found = true
			}
			break
		}
	}
	return best, found
}
