package interfaces

import "context"

// Message represents a single message in a model conversation.
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the language-model collaborator contract. Each
// call is stateless: no conversation memory is retained between
// questions, which keeps the grounding contract auditable.
type LLMService interface {
	// Chat generates a completion for the supplied messages. The
	// messages slice carries the full context for the call, including
	// the grounding system prompt and the evidence block.
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the provider is reachable and responding.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}
