package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"property-tour-router/internal/database"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/listings"
	"property-tour-router/internal/risk"
	"property-tour-router/internal/routing"
	"property-tour-router/internal/tour"
)

const maxBodyBytes = 1 << 20

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB        database.HistoryStore // nil when history is disabled
	Sessions  *tour.SessionStore
	Dataset   *listings.Dataset
	Graph     *graph.Graph
	Incidents []risk.Incident
	Version   string
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// decodeJSON reads a JSON body. An empty body leaves dst untouched.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.handleValidationError(w, "Invalid request body")
		return false
	}
	return true
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleConflict handles 409 errors
func (h *Handler) handleConflict(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusConflict, "CONFLICT", message, nil)
}

// handleRoutingError handles 422 errors for routing failures
func (h *Handler) handleRoutingError(w http.ResponseWriter, err error) {
	var rerr *tour.ErrCannotRoute
	if errors.As(err, &rerr) {
		h.writeError(w, http.StatusUnprocessableEntity, "ROUTING_FAILED", rerr.Reason, map[string]interface{}{
			"stop_id": rerr.StopID,
		})
		return
	}
	h.writeError(w, http.StatusUnprocessableEntity, "ROUTING_FAILED", err.Error(), nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// handleTourError maps session errors to responses
func (h *Handler) handleTourError(w http.ResponseWriter, err error) {
	var rerr *tour.ErrCannotRoute
	switch {
	case errors.Is(err, tour.ErrInvalidCoordinates), errors.Is(err, routing.ErrUnknownStrategy):
		h.handleValidationError(w, err.Error())
	case errors.Is(err, tour.ErrDuplicateStop):
		h.handleConflict(w, err.Error())
	case errors.Is(err, tour.ErrUnknownStop):
		h.handleNotFound(w, err.Error())
	case errors.Is(err, tour.ErrNoStartPoint), errors.Is(err, tour.ErrNoStops), errors.As(err, &rerr):
		h.handleRoutingError(w, err)
	default:
		h.handleInternalError(w, err)
	}
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// PathSegments splits the part of path after prefix into non-empty segments
func PathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "disabled"

	if h.DB != nil {
		dbStatus = "connected"
		if err := h.DB.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			dbStatus = "error"
		}
	}

	resp := map[string]interface{}{
		"status":   status,
		"version":  h.Version,
		"database": dbStatus,
	}
	if h.Graph != nil {
		resp["graph_nodes"] = h.Graph.NodeCount()
		resp["graph_edges"] = h.Graph.EdgeCount()
	}
	if h.Sessions != nil {
		resp["sessions"] = len(h.Sessions.IDs())
	}
	h.writeJSON(w, http.StatusOK, resp)
}
