package consistency

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// Tracker groups duplicate and near-duplicate questions and guarantees
// one answer per group: the first member to claim a group becomes its
// representative and runs full retrieval and synthesis; every later
// member waits for the representative's record and copies it verbatim.
// This is a strict invariant, not an optimization: rephrased
// duplicates must never diverge.
//
// Grouping is content addressed: exact canonical-key equality first,
// then token-set Dice similarity against existing groups at or above
// the configured threshold. Lookup and insert happen under one lock so
// two members of a new group cannot both become representative.
type Tracker struct {
	mu        sync.Mutex
	groups    map[string]*Group // canonical key -> group
	threshold float64
	logger    arbor.ILogger
}

// Group is one consistency group. The done channel closes when the
// representative resolves the group's answer record.
type Group struct {
	ID       string
	key      string
	tokens   map[string]bool
	category models.Category

	done   chan struct{}
	record *models.AnswerRecord
}

// NewTracker creates a tracker with the given near-duplicate
// similarity threshold in (0, 1].
func NewTracker(threshold float64, logger arbor.ILogger) *Tracker {
	return &Tracker{
		groups:    make(map[string]*Group),
		threshold: threshold,
		logger:    logger,
	}
}

// Claim finds or creates the group for a question. The boolean is true
// when the caller became the group's representative and must resolve
// it; it is false when another question already owns the group and the
// caller should Wait.
func (t *Tracker) Claim(q *models.Question) (*Group, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Questions that canonicalize to nothing (all stopwords or all
	// punctuation) carry no content to group on. Each gets its own
	// group and never registers under the empty key, so unrelated
	// questions cannot collide on it.
	if q.CanonicalKey == "" {
		group := t.newGroup(q, nil)
		return group, true
	}

	if group, ok := t.groups[q.CanonicalKey]; ok {
		t.observeMember(group, q)
		return group, false
	}

	tokens := models.CanonicalTokens(q.Text)
	if group := t.nearest(tokens); group != nil {
		// Near-duplicate: alias this key to the existing group so
		// further exact matches of either phrasing resolve to it.
		t.groups[q.CanonicalKey] = group
		t.observeMember(group, q)
		return group, false
	}

	group := t.newGroup(q, tokens)
	t.groups[q.CanonicalKey] = group
	return group, true
}

func (t *Tracker) newGroup(q *models.Question, tokens map[string]bool) *Group {
	return &Group{
		ID:       common.NewGroupID(),
		key:      q.CanonicalKey,
		tokens:   tokens,
		category: q.Category,
		done:     make(chan struct{}),
	}
}

// observeMember logs a category conflict between a later member and
// the group. Consistency wins over category nuance: the group is not
// re-synthesized.
func (t *Tracker) observeMember(group *Group, q *models.Question) {
	if group.category != "" && q.Category != "" && group.category != q.Category {
		t.logger.Warn().
			Str("group_id", group.ID).
			Str("group_category", string(group.category)).
			Str("question_id", q.ID).
			Str("question_category", string(q.Category)).
			Msg("Duplicate question routed to a different category; keeping the group answer")
	}
}

// nearest returns the existing group most similar to the token set,
// provided it clears the threshold. Called with the lock held.
func (t *Tracker) nearest(tokens map[string]bool) *Group {
	var (
		best      *Group
		bestScore float64
	)
	for _, group := range t.groups {
		score := diceSimilarity(tokens, group.tokens)
		if score >= t.threshold && score > bestScore {
			best = group
			bestScore = score
		}
	}
	return best
}

// Resolve publishes the representative's answer record and wakes all
// waiting members. Resolving twice is a programming error and panics
// via the double close, which the worker pool never does.
func (t *Tracker) Resolve(group *Group, record *models.AnswerRecord) {
	record.ConsistencyGroupID = group.ID
	t.mu.Lock()
	group.record = record
	t.mu.Unlock()
	close(group.done)
}

// Wait blocks until the group's record is available or the context is
// cancelled, then returns a verbatim copy for the given question.
func (t *Tracker) Wait(ctx context.Context, group *Group, questionID string) (*models.AnswerRecord, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-group.done:
	}

	t.mu.Lock()
	record := group.record
	t.mu.Unlock()

	copied := record.CopyFor(questionID)
	copied.ConsistencyGroupID = group.ID
	return copied, nil
}

// diceSimilarity is the token-set Dice coefficient: 2|A∩B| / (|A|+|B|).
func diceSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for tok := range a {
		if b[tok] {
			overlap++
		}
	}
	return 2 * float64(overlap) / float64(len(a)+len(b))
}
