package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// NewLLMService creates the LLM service implementation selected by
// llm.default_provider.
func NewLLMService(cfg *common.Config, kv interfaces.KeyValueStorage, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", string(cfg.LLM.DefaultProvider)).Msg("Initializing LLM service")

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, kv, logger)
	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, kv, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'claude' or 'gemini'", cfg.LLM.DefaultProvider)
	}
}
