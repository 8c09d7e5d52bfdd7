package synthesis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/assembler"
)

// ConditionNotMetMessage is the fixed answer for a conditional
// sub-question whose parent condition resolved negative.
const ConditionNotMetMessage = "The condition in the preceding question was not met; the requested explanation is not applicable."

// failureNote marks records forced to unanswerable after the model
// collaborator failed and the retry was exhausted.
const failureNote = "Synthesis failed after retry; recorded as unanswerable by the system."

// Synthesizer turns a question plus its assembled evidence context
// into an answer record under the grounding contract. The empty
// context short-circuits deterministically without a model call, as
// does the off-domain check and the negative-condition child case.
type Synthesizer struct {
	llm        interfaces.LLMService
	domain     *domainFilter
	maxRetries int
	backoff    time.Duration
	logger     arbor.ILogger
}

// NewSynthesizer creates a synthesizer over the model collaborator.
func NewSynthesizer(llm interfaces.LLMService, cfg *common.Config, logger arbor.ILogger) *Synthesizer {
	backoff, err := time.ParseDuration(cfg.Pipeline.SynthesisBackoff)
	if err != nil || backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Synthesizer{
		llm:        llm,
		domain:     newDomainFilter(cfg.Pipeline.DomainVocabulary),
		maxRetries: cfg.Pipeline.MaxSynthesisRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// Request carries one synthesis call. Parent fields are set only for
// conditional sub-questions, whose parent is always resolved first.
type Request struct {
	Question       *models.Question
	Evidence       *assembler.Context
	ParentQuestion *models.Question
	ParentAnswer   *models.AnswerRecord
}

// Synthesize produces the answer record for one question. It never
// returns a nil record together with a nil error: collaborator
// failures degrade to an unanswerable record with a system note, and
// the error is returned alongside for batch-level warning collection.
func (s *Synthesizer) Synthesize(ctx context.Context, req *Request) (*models.AnswerRecord, error) {
	q := req.Question

	// Conditional children resolve deterministically from the parent
	// record when the condition is known or the parent had no answer.
	if q.IsConditional() && req.ParentAnswer != nil {
		if record, done := s.resolveConditional(q, req.ParentAnswer); done {
			return record, nil
		}
	}

	// No evidence at all: declined when the question is also lexically
	// off topic, unanswerable otherwise. No model call either way.
	if req.Evidence == nil || req.Evidence.Empty {
		if s.domain.offDomain(q.Text) {
			s.logger.Debug().Str("question_id", q.ID).Msg("Question declined as out of domain")
			return models.NewDeclined(q.ID), nil
		}
		return models.NewUnanswerable(q.ID, ""), nil
	}

	reply, err := s.chatWithRetry(ctx, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("question_id", q.ID).Msg("Synthesis failed after retry, forcing unanswerable")
		return models.NewUnanswerable(q.ID, failureNote), &models.SynthesisError{QuestionID: q.ID, Err: err}
	}

	record, err := s.buildRecord(q, req.Evidence, reply)
	if err != nil {
		s.logger.Warn().Err(err).Str("question_id", q.ID).Msg("Model reply unusable, forcing unanswerable")
		return models.NewUnanswerable(q.ID, failureNote), &models.SynthesisError{QuestionID: q.ID, Err: err}
	}
	return record, nil
}

// resolveConditional handles the child of a yes/no question without a
// model call where the outcome is fully determined by the parent.
func (s *Synthesizer) resolveConditional(q *models.Question, parent *models.AnswerRecord) (*models.AnswerRecord, bool) {
	if parent.Status != models.StatusAnswered {
		// No grounded parent answer means the dependent clause cannot
		// be grounded either.
		if parent.Status == models.StatusDeclined {
			return models.NewDeclined(q.ID), true
		}
		return models.NewUnanswerable(q.ID, ""), true
	}

	if parent.ConditionMet != nil && !*parent.ConditionMet {
		return &models.AnswerRecord{
			QuestionID: q.ID,
			AnswerText: ConditionNotMetMessage,
			Citations:  append([]models.Citation(nil), parent.Citations...),
			Status:     models.StatusAnswered,
		}, true
	}

	// Condition met or not determinable: synthesize with parent context.
	return nil, false
}

// chatWithRetry calls the model once, retrying up to the configured
// count with backoff on collaborator failure.
func (s *Synthesizer) chatWithRetry(ctx context.Context, req *Request) (string, error) {
	var parentText, parentAnswer string
	if req.ParentQuestion != nil && req.ParentAnswer != nil {
		parentText = req.ParentQuestion.Text
		parentAnswer = req.ParentAnswer.AnswerText
	}

	messages := []interfaces.Message{
		{Role: "system", Content: GroundingSystemPrompt},
		{Role: "user", Content: buildUserPrompt(req.Question.Text, req.Evidence, parentText, parentAnswer)},
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Debug().
				Str("question_id", req.Question.ID).
				Int("attempt", attempt).
				Dur("backoff", s.backoff).
				Msg("Retrying synthesis call")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.backoff):
			}
		}

		reply, err := s.llm.Chat(ctx, messages)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// modelReply is the JSON contract the grounding prompt demands.
type modelReply struct {
	Answer       string   `json:"answer"`
	Unanswerable bool     `json:"unanswerable"`
	ConditionMet *bool    `json:"condition_met"`
	Citations    []string `json:"citations"`
}

// buildRecord parses the model reply and enforces the grounding
// contract: citations are filtered to sources actually present in the
// context, and an answered result with no surviving citation is
// demoted to unanswerable rather than trusted.
func (s *Synthesizer) buildRecord(q *models.Question, evidence *assembler.Context, raw string) (*models.AnswerRecord, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(extractJSON(raw)), &reply); err != nil {
		return nil, err
	}

	if reply.Unanswerable || strings.TrimSpace(reply.Answer) == "" {
		record := models.NewUnanswerable(q.ID, "")
		record.ConditionMet = reply.ConditionMet
		return record, nil
	}

	citations := s.verifyCitations(evidence, reply.Citations)
	if len(citations) == 0 {
		s.logger.Debug().Str("question_id", q.ID).Msg("Answer had no verifiable citation, demoting to unanswerable")
		return models.NewUnanswerable(q.ID, ""), nil
	}

	return &models.AnswerRecord{
		QuestionID:   q.ID,
		AnswerText:   strings.TrimSpace(reply.Answer),
		Citations:    citations,
		Status:       models.StatusAnswered,
		ConditionMet: reply.ConditionMet,
	}, nil
}

// verifyCitations maps cited tags or source files back to context
// sources, dropping anything not present in the supplied evidence.
func (s *Synthesizer) verifyCitations(evidence *assembler.Context, cited []string) []models.Citation {
	byTag := make(map[string]models.Citation, len(evidence.Fragments))
	bySource := make(map[string]models.Citation, len(evidence.Fragments))
	for _, f := range evidence.Fragments {
		citation := models.Citation{SourceFile: f.SourceFile, Section: f.Section}
		byTag[f.Tag] = citation
		if _, ok := bySource[f.SourceFile]; !ok {
			bySource[f.SourceFile] = citation
		}
	}

	var citations []models.Citation
	seen := make(map[string]bool)
	for _, ref := range cited {
		ref = strings.TrimSpace(ref)
		citation, ok := byTag[ref]
		if !ok {
			citation, ok = bySource[ref]
		}
		if !ok {
			continue
		}
		key := citation.SourceFile + "|" + citation.Section
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, citation)
	}
	return citations
}

// extractJSON tolerates code fences and prose around the JSON object.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
