package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// maxPayloadSize caps questionnaire uploads at 25MB, generous for PDFs.
const maxPayloadSize = 25 << 20

// DDQHandler exposes the answer generation pipeline over HTTP.
type DDQHandler struct {
	pipeline interfaces.Pipeline
	logger   arbor.ILogger
}

// NewDDQHandler creates the questionnaire submission handler
func NewDDQHandler(pipeline interfaces.Pipeline, logger arbor.ILogger) *DDQHandler {
	return &DDQHandler{pipeline: pipeline, logger: logger}
}

// HandleSubmit processes POST /api/ddq. The questionnaire payload is
// the request body; format comes from the format query parameter or is
// sniffed from the Content-Type header, falling back to detection from
// the payload itself.
func (h *DDQHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(payload) > maxPayloadSize {
		writeError(w, http.StatusRequestEntityTooLarge, "questionnaire payload exceeds 25MB limit")
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "questionnaire payload is empty")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatFromContentType(r.Header.Get("Content-Type"))
	}

	result, err := h.pipeline.RunBatch(r.Context(), payload, format)
	if err != nil {
		var extractionErr *models.ExtractionError
		var assemblyErr *models.AssemblyError
		var publishErr *models.PublishError
		switch {
		case errors.As(err, &extractionErr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &assemblyErr):
			writeError(w, http.StatusInternalServerError, err.Error())
		case errors.As(err, &publishErr):
			// Synthesis succeeded; return the result with the publish
			// failure recorded. DocumentRef stays empty until a retry
			// lands the artifact.
			h.logger.Warn().Err(err).Str("batch_id", result.BatchID).Msg("Batch publishing failed")
			result.Warnings = append(result.Warnings, err.Error())
			writeJSON(w, http.StatusOK, result)
		case errors.Is(err, r.Context().Err()) && r.Context().Err() != nil:
			writeError(w, 499, "request cancelled")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func formatFromContentType(contentType string) string {
	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "application/json":
		return "json"
	case "text/html":
		return "html"
	case "application/pdf":
		return "pdf"
	case "text/plain":
		return "text"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
