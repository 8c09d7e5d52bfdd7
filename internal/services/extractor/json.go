package extractor

import (
	"encoding/json"
	"strings"

	"github.com/ternarybob/respondeo/internal/models"
)

// jsonQuestionnaire is the structured upload shape: either a flat
// question list or sections holding question lists.
type jsonQuestionnaire struct {
	Questions []jsonQuestion `json:"questions"`
	Sections  []struct {
		Title     string         `json:"title"`
		Questions []jsonQuestion `json:"questions"`
	} `json:"sections"`
}

// jsonQuestion accepts both a bare string and an object with a text field.
type jsonQuestion struct {
	Text string
}

func (q *jsonQuestion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		q.Text = s
		return nil
	}
	var obj struct {
		Text     string `json:"text"`
		Question string `json:"question"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Text != "" {
		q.Text = obj.Text
	} else {
		q.Text = obj.Question
	}
	return nil
}

func (s *Service) extractJSON(payload []byte) ([]string, error) {
	var doc jsonQuestionnaire
	if err := json.Unmarshal(payload, &doc); err != nil {
		// A bare array of questions is also accepted.
		var list []jsonQuestion
		if listErr := json.Unmarshal(payload, &list); listErr != nil {
			return nil, &models.ExtractionError{Format: FormatJSON, Reason: "malformed JSON payload: " + err.Error()}
		}
		doc.Questions = list
	}

	var texts []string
	appendQuestion := func(q jsonQuestion) {
		text := strings.TrimSpace(q.Text)
		if text != "" {
			texts = append(texts, normalizeSpace(text))
		}
	}

	for _, q := range doc.Questions {
		appendQuestion(q)
	}
	for _, section := range doc.Sections {
		for _, q := range section.Questions {
			appendQuestion(q)
		}
	}

	return texts, nil
}
