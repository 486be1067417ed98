package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"property-tour-router/internal/models"
	"property-tour-router/internal/tour"
)

const sessionsPrefix = "/api/v1/sessions/"

// SessionResponse is the JSON view of a tour session
type SessionResponse struct {
	ID            string                     `json:"id"`
	CreatedAt     time.Time                  `json:"created_at"`
	Start         *models.Coordinates        `json:"start,omitempty"`
	Stops         []models.Stop              `json:"stops"`
	Itinerary     *models.Itinerary          `json:"itinerary,omitempty"`
	Appointments  []models.Appointment       `json:"appointments"`
	Cancellations []models.CancellationEvent `json:"cancellations"`
	Monitoring    bool                       `json:"monitoring"`
}

// StopRequest adds a stop by catalog id or by explicit coordinates
type StopRequest struct {
	PropertyID string       `json:"property_id,omitempty"`
	Stop       *models.Stop `json:"stop,omitempty"`
}

// CreateSessionRequest optionally seeds a session with a start and stops
type CreateSessionRequest struct {
	Start       *models.Coordinates `json:"start,omitempty"`
	PropertyIDs []string            `json:"property_ids,omitempty"`
	Stops       []models.Stop       `json:"stops,omitempty"`
}

// OptimizeRequest selects the ordering strategy
type OptimizeRequest struct {
	Strategy string `json:"strategy,omitempty"`
}

func newSessionResponse(s *tour.Session) SessionResponse {
	resp := SessionResponse{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		Stops:         s.Stops(),
		Itinerary:     s.Itinerary(),
		Appointments:  s.Appointments(),
		Cancellations: s.Cancellations(),
		Monitoring:    s.Monitoring(),
	}
	if start, ok := s.Start(); ok {
		resp.Start = &start
	}
	if resp.Stops == nil {
		resp.Stops = []models.Stop{}
	}
	if resp.Appointments == nil {
		resp.Appointments = []models.Appointment{}
	}
	if resp.Cancellations == nil {
		resp.Cancellations = []models.CancellationEvent{}
	}
	return resp
}

// sessionFromPath resolves the {id} segment or writes a 404
func (h *Handler) sessionFromPath(w http.ResponseWriter, r *http.Request) (*tour.Session, []string) {
	segments := PathSegments(r.URL.Path, sessionsPrefix)
	if len(segments) == 0 {
		h.handleNotFound(w, "Session not found")
		return nil, nil
	}
	session := h.Sessions.Get(segments[0])
	if session == nil {
		h.handleNotFound(w, "Session not found")
		return nil, nil
	}
	return session, segments[1:]
}

// resolveStop turns a request into a stop, looking properties up in the catalog
func (h *Handler) resolveStop(req StopRequest) (models.Stop, error) {
	if req.PropertyID != "" {
		if h.Dataset == nil {
			return models.Stop{}, fmt.Errorf("no property catalog loaded")
		}
		p, ok := h.Dataset.Property(req.PropertyID)
		if !ok {
			return models.Stop{}, fmt.Errorf("unknown property %s", req.PropertyID)
		}
		return models.StopFromProperty(&p), nil
	}
	if req.Stop == nil || req.Stop.ID == "" {
		return models.Stop{}, fmt.Errorf("property_id or stop with id is required")
	}
	return *req.Stop, nil
}

// HandleCreateSession handles POST /api/v1/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	stops := make([]models.Stop, 0, len(req.PropertyIDs)+len(req.Stops))
	for _, id := range req.PropertyIDs {
		stop, err := h.resolveStop(StopRequest{PropertyID: id})
		if err != nil {
			h.handleValidationError(w, err.Error())
			return
		}
		stops = append(stops, stop)
	}
	for i := range req.Stops {
		stop, err := h.resolveStop(StopRequest{Stop: &req.Stops[i]})
		if err != nil {
			h.handleValidationError(w, err.Error())
			return
		}
		stops = append(stops, stop)
	}

	session := h.Sessions.Create()
	if req.Start != nil {
		if err := session.SetStart(*req.Start); err != nil {
			h.Sessions.Delete(session.ID)
			h.handleTourError(w, err)
			return
		}
	}
	for _, stop := range stops {
		if err := session.AddStop(stop); err != nil {
			h.Sessions.Delete(session.ID)
			h.handleTourError(w, err)
			return
		}
	}

	log.Printf("[HTTP] Session created: id=%s stops=%d", session.ID, len(stops))
	h.writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

// HandleGetSession handles GET /api/v1/sessions/{id}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionFromPath(w, r)
	if session == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	segments := PathSegments(r.URL.Path, sessionsPrefix)
	if len(segments) == 0 || !h.Sessions.Delete(segments[0]) {
		h.handleNotFound(w, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetStart handles PUT /api/v1/sessions/{id}/start
func (h *Handler) HandleSetStart(w http.ResponseWriter, r *http.Request) {
	segments := PathSegments(r.URL.Path, sessionsPrefix)
	if len(segments) == 0 {
		h.handleNotFound(w, "Session not found")
		return
	}

	var req models.Coordinates
	if r.Body == nil || r.Body == http.NoBody {
		h.handleValidationError(w, "lat and lng are required")
		return
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var resp SessionResponse
	var err error
	found := h.Sessions.Update(segments[0], func(s *tour.Session) {
		if err = s.SetStart(req); err == nil {
			resp = newSessionResponse(s)
		}
	})
	if !found {
		h.handleNotFound(w, "Session not found")
		return
	}
	if err != nil {
		h.handleTourError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleAddStop handles POST /api/v1/sessions/{id}/stops
func (h *Handler) HandleAddStop(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionFromPath(w, r)
	if session == nil {
		return
	}

	var req StopRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	stop, err := h.resolveStop(req)
	if err != nil {
		h.handleValidationError(w, err.Error())
		return
	}
	if err := session.AddStop(stop); err != nil {
		h.handleTourError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

// HandleRemoveStop handles DELETE /api/v1/sessions/{id}/stops/{stopID}
func (h *Handler) HandleRemoveStop(w http.ResponseWriter, r *http.Request) {
	session, rest := h.sessionFromPath(w, r)
	if session == nil {
		return
	}
	if len(rest) != 2 {
		h.handleValidationError(w, "stop id is required")
		return
	}
	if err := session.RemoveStop(rest[1]); err != nil {
		h.handleTourError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// HandleOptimize handles POST /api/v1/sessions/{id}/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionFromPath(w, r)
	if session == nil {
		return
	}

	var req OptimizeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	stops, err := session.Optimize(r.Context(), req.Strategy)
	if err != nil {
		log.Printf("[HTTP] Optimize failed: session=%s err=%v", session.ID, err)
		h.handleTourError(w, err)
		return
	}
	log.Printf("[HTTP] Optimized: session=%s stops=%d took=%v", session.ID, len(stops), time.Since(start))

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"stops":      stops,
		"monitoring": session.Monitoring(),
	})
}

// HandleGenerateRoute handles POST /api/v1/sessions/{id}/route
func (h *Handler) HandleGenerateRoute(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionFromPath(w, r)
	if session == nil {
		return
	}

	it, err := session.GenerateRoute(r.Context())
	if err != nil {
		log.Printf("[HTTP] Route generation failed: session=%s err=%v", session.ID, err)
		h.handleTourError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, it)
}

// HandleListCancellations handles GET /api/v1/sessions/{id}/cancellations
func (h *Handler) HandleListCancellations(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionFromPath(w, r)
	if session == nil {
		return
	}
	events := session.Cancellations()
	if events == nil {
		events = []models.CancellationEvent{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    session.ID,
		"cancellations": events,
		"total":         len(events),
	})
}

// HandleSessionHistory handles GET /api/v1/sessions/{id}/history
func (h *Handler) HandleSessionHistory(w http.ResponseWriter, r *http.Request) {
	segments := PathSegments(r.URL.Path, sessionsPrefix)
	if len(segments) == 0 {
		h.handleNotFound(w, "Session not found")
		return
	}
	if h.DB == nil {
		h.writeError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "History storage is not configured", nil)
		return
	}

	records, err := h.DB.Itineraries().ListBySession(r.Context(), segments[0], 20)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	events, err := h.DB.Cancellations().ListBySession(r.Context(), segments[0])
	if err != nil {
		h.handleInternalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    segments[0],
		"itineraries":   records,
		"cancellations": events,
	})
}
