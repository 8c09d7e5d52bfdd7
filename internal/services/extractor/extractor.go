package extractor

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/models"
)

// Supported questionnaire payload formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Service parses an uploaded questionnaire into ordered question
// units. OrderIndex is assigned here and never changes; conditional
// sub-questions are attached to the immediately preceding question.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new extractor service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

var (
	// Question boundary markers: "1.", "1.2", "3)", "a)", "Q4:", bullets.
	boundaryRe = regexp.MustCompile(`^\s*(?:\d+(?:\.\d+)*[\.\)]?|[a-z][\.\)]|[Qq]\d+[:.]?|[-*•])\s+`)

	// Conditional openers that make a question depend on its predecessor.
	conditionalRe = regexp.MustCompile(`(?i)^if\s+(yes|no|so|not|applicable|any)\b`)
)

// Extract parses the payload in the given format. An empty format is
// detected from the payload itself. Returns ExtractionError when no
// recognizable question boundary is found.
func (s *Service) Extract(payload []byte, format string) ([]models.Question, error) {
	if format == "" {
		format = detectFormat(payload)
	}

	var (
		texts []string
		err   error
	)
	switch format {
	case FormatJSON:
		texts, err = s.extractJSON(payload)
	case FormatHTML:
		texts, err = s.extractHTML(payload)
	case FormatPDF:
		texts, err = s.extractPDF(payload)
	case FormatText:
		texts = s.extractText(string(payload))
	default:
		return nil, &models.ExtractionError{Format: format, Reason: "unsupported payload format"}
	}
	if err != nil {
		return nil, err
	}

	if len(texts) == 0 {
		return nil, &models.ExtractionError{Format: format, Reason: "no question boundaries recognized"}
	}

	questions := make([]models.Question, 0, len(texts))
	var lastTopLevelID string
	for i, text := range texts {
		q := models.Question{
			ID:           common.NewQuestionID(),
			OrderIndex:   i,
			Text:         text,
			Category:     models.CategoryUnclassified,
			CanonicalKey: models.CanonicalKey(text),
		}
		if conditionalRe.MatchString(text) && lastTopLevelID != "" {
			q.ParentID = lastTopLevelID
		} else {
			lastTopLevelID = q.ID
		}
		questions = append(questions, q)
	}

	s.logger.Debug().
		Str("format", format).
		Int("questions", len(questions)).
		Msg("Questionnaire extracted")

	return questions, nil
}

// extractText applies the line-based boundary rules to plain text.
// A line is a question when it carries a boundary marker or ends with
// a question mark; unmarked continuation lines extend the previous
// question.
func (s *Service) extractText(payload string) []string {
	var (
		questions []string
		current   strings.Builder
		open      bool
	)

	flush := func() {
		text := normalizeSpace(current.String())
		if text != "" {
			questions = append(questions, text)
		}
		current.Reset()
		open = false
	}

	for _, raw := range strings.Split(payload, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}

		switch {
		case boundaryRe.MatchString(line):
			flush()
			current.WriteString(boundaryRe.ReplaceAllString(line, ""))
			open = true
		case strings.HasSuffix(line, "?") && !open:
			flush()
			questions = append(questions, line)
		case open:
			current.WriteString(" ")
			current.WriteString(line)
		case conditionalRe.MatchString(line):
			// Conditional clauses often lack numbering or a question mark.
			questions = append(questions, line)
		}

		if open && strings.HasSuffix(line, "?") {
			flush()
		}
	}
	flush()

	return questions
}

// detectFormat sniffs the payload when the caller did not say.
func detectFormat(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	switch {
	case strings.HasPrefix(trimmed, "%PDF-"):
		return FormatPDF
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return FormatJSON
	case strings.HasPrefix(strings.ToLower(trimmed), "<!doctype html") ||
		strings.HasPrefix(strings.ToLower(trimmed), "<html"):
		return FormatHTML
	default:
		return FormatText
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
