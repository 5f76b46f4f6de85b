package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/hairizuan-noorazman/firesweep/logger"
	"github.com/hairizuan-noorazman/firesweep/results"
	"github.com/hairizuan-noorazman/firesweep/storage"
)

// ResultsHandler serves stored sweep results and their archived UART logs.
type ResultsHandler struct {
	store   results.Store
	archive storage.ArtifactStore
	logger  logger.Logger
}

// NewResultsHandler creates a new results handler. archive may be nil when
// UART logs are not archived.
func NewResultsHandler(store results.Store, archive storage.ArtifactStore, log logger.Logger) *ResultsHandler {
	return &ResultsHandler{
		store:   store,
		archive: archive,
		logger:  log,
	}
}

// ListSweeps lists the sweeps that have stored results, newest first.
func (h *ResultsHandler) ListSweeps(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	sweeps, err := h.store.ListSweeps(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list sweeps", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list sweeps")
		return
	}

	total, err := h.store.CountSweeps(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count sweeps")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(sweeps, total, limit, offset))
}

// ListBySweep lists the results of one sweep in run order.
func (h *ResultsHandler) ListBySweep(w http.ResponseWriter, r *http.Request) {
	sweepID, ok := parseUUIDOrRespond(w, r, "id", "sweep")
	if !ok {
		return
	}
	limit, offset := parsePagination(r)

	total, err := h.store.CountBySweep(r.Context(), sweepID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count results")
		return
	}
	if total == 0 {
		respondError(w, http.StatusNotFound, "sweep not found")
		return
	}

	records, err := h.store.ListBySweep(r.Context(), sweepID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(records, total, limit, offset))
}

// GetByID returns a single stored result.
func (h *ResultsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "result")
	if !ok {
		return
	}

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, results.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "result not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get result", map[string]interface{}{
			"error":     err.Error(),
			"result_id": id.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to get result")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// GetLog streams the archived UART log of a stored result.
func (h *ResultsHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "result")
	if !ok {
		return
	}

	if h.archive == nil {
		respondError(w, http.StatusNotFound, "UART logs are not archived")
		return
	}

	record, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, results.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, "result not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get result")
		return
	}
	if record.LogKey == "" {
		respondError(w, http.StatusNotFound, "no archived log for this result")
		return
	}

	body, err := h.archive.Get(r.Context(), record.LogKey)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			respondError(w, http.StatusNotFound, "archived log not found")
			return
		}
		h.logger.Error(r.Context(), "failed to read archived log", map[string]interface{}{
			"error":     err.Error(),
			"result_id": id.String(),
			"key":       record.LogKey,
		})
		respondError(w, http.StatusInternalServerError, "failed to read archived log")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn(r.Context(), "failed to stream archived log", map[string]interface{}{
			"error":     err.Error(),
			"result_id": id.String(),
		})
	}
}
