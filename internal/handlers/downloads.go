package handlers

import (
	"fmt"
	"net/http"

	"github.com/juju/errors"

	"download-sink/internal/sink"
)

// DownloadsHandler serves artifacts back from the sink
type DownloadsHandler struct {
	sink sink.DownloadSink
}

// NewDownloadsHandler creates a new downloads handler
func NewDownloadsHandler(s sink.DownloadSink) *DownloadsHandler {
	return &DownloadsHandler{sink: s}
}

// HandleGet handles GET /downloads?location={location}
func (h *DownloadsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		respondError(w, http.StatusBadRequest, "location is required", nil)
		return
	}

	artifact, err := h.sink.Get(r.Context(), sink.SaveResult(location))
	switch {
	case errors.Is(err, sink.InvalidArgument):
		respondError(w, http.StatusBadRequest, "Invalid location", err)
		return
	case errors.Is(err, errors.NotFound):
		respondError(w, http.StatusNotFound, "Download not found", err)
		return
	case err != nil:
		logger.Errorf("reading %s: %v", location, err)
		respondError(w, http.StatusInternalServerError, "Failed to read download", err)
		return
	}

	// Set headers
	w.Header().Set("Content-Type", artifact.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(artifact.Content)))
	w.Header().Set("X-Sink-Strategy", string(h.sink.Strategy()))

	// Write file
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Content)
}

// HandleHealth handles GET /health requests
func (h *DownloadsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"strategy": string(h.sink.Strategy()),
	})
}
