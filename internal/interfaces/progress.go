package interfaces

import "github.com/ternarybob/respondeo/internal/models"

// ProgressEvent reports pipeline progress for one batch.
type ProgressEvent struct {
	BatchID    string              `json:"batch_id"`
	Stage      string              `json:"stage"` // extracted, question_done, assembled, published
	QuestionID string              `json:"question_id,omitempty"`
	Status     models.AnswerStatus `json:"status,omitempty"`
	Completed  int                 `json:"completed"`
	Total      int                 `json:"total"`
	Message    string              `json:"message,omitempty"`
}

// ProgressSink receives pipeline progress events. Implementations must
// not block: the pipeline publishes from worker goroutines.
type ProgressSink interface {
	Publish(event ProgressEvent)
}
