package models

import "time"

// DocumentEntry pairs a question with its resolved answer record.
type DocumentEntry struct {
	Question Question     `json:"question"`
	Answer   AnswerRecord `json:"answer"`
}

// ResponseDocument is the assembled output of one pipeline run:
// question/answer pairs in original questionnaire order with
// parent/child pairs adjacent. Immutable once published.
type ResponseDocument struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entries     []DocumentEntry `json:"entries"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// QuestionStatus is the per-question outcome surfaced to the caller.
type QuestionStatus struct {
	QuestionID string       `json:"question_id"`
	OrderIndex int          `json:"order_index"`
	Text       string       `json:"text"`
	Category   Category     `json:"category"`
	Status     AnswerStatus `json:"status"`
	Note       string       `json:"note,omitempty"`
}

// BatchResult is returned by the pipeline entry point. Document stays
// populated even when publishing failed so the artifact can be
// re-published without re-running synthesis.
type BatchResult struct {
	BatchID     string            `json:"batch_id"`
	DocumentRef string            `json:"document_ref,omitempty"`
	Document    *ResponseDocument `json:"-"`
	Statuses    []QuestionStatus  `json:"statuses"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// Artifact is a published output document held by the artifact store.
type Artifact struct {
	Name        string    `json:"name" badgerhold:"key"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	Content     []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
