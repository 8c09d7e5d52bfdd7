package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// artifactPrefix scopes the document endpoints to published responses.
const artifactPrefix = "ddq_responses/"

// DocumentHandler serves published response documents.
type DocumentHandler struct {
	artifacts interfaces.ArtifactStorage
	logger    arbor.ILogger
}

// NewDocumentHandler creates the published document handler
func NewDocumentHandler(artifacts interfaces.ArtifactStorage, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{artifacts: artifacts, logger: logger}
}

// HandleList processes GET /api/documents, newest first.
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.artifacts.List(r.Context(), artifactPrefix)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(artifacts),
		"documents": artifacts,
	})
}

// HandleGet processes GET /api/documents/* where the wildcard is the
// full artifact name below the responses prefix.
func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" {
		writeError(w, http.StatusBadRequest, "document name is required")
		return
	}

	artifact, err := h.artifacts.Get(r.Context(), artifactPrefix+name)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Content)
}
