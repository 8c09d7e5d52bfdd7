package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// HealthHandler reports service and collaborator health. The LLM is
// reported as configured rather than probed: a health probe against a
// metered API on every poll is wasted spend.
type HealthHandler struct {
	search   interfaces.SearchService
	provider common.LLMProvider
	logger   arbor.ILogger
}

// NewHealthHandler creates the health endpoint handler
func NewHealthHandler(search interfaces.SearchService, provider common.LLMProvider, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{search: search, provider: provider, logger: logger}
}

// HandleHealth processes GET /health.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	searchStatus := "ok"
	if err := h.search.HealthCheck(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Search health check failed")
		searchStatus = err.Error()
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": common.GetVersion(),
		"components": map[string]string{
			"search": searchStatus,
			"llm":    "configured (" + string(h.provider) + ")",
		},
	})
}
