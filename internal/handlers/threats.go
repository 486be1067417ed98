package handlers

import (
	"log"
	"net/http"
	"strconv"

	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/risk"
)

const simulationsPrefix = "/api/v1/threats/simulations/"

// SimulateRequest runs one Monte Carlo threat draw
type SimulateRequest struct {
	Seed int64 `json:"seed,omitempty"`
	Save bool  `json:"save,omitempty"`
}

// SimulateResponse wraps a run with its stored id, if saved
type SimulateResponse struct {
	ID     int64                  `json:"id,omitempty"`
	Result *risk.SimulationResult `json:"result"`
}

// RouteRiskRequest scores the street path between two points
type RouteRiskRequest struct {
	From         models.Coordinates `json:"from"`
	To           models.Coordinates `json:"to"`
	SimulationID int64              `json:"simulation_id,omitempty"`
}

// RouteRiskResponse is a scored street path
type RouteRiskResponse struct {
	NodePath       []int64           `json:"node_path"`
	DistanceMeters float64           `json:"distance_meters"`
	Risk           risk.RouteSummary `json:"risk"`
}

func (h *Handler) riskMap() *graph.RiskMap {
	if h.Graph == nil {
		return nil
	}
	return h.Graph.Risk()
}

// HandleSimulateThreats handles POST /api/v1/threats/simulate
func (h *Handler) HandleSimulateThreats(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Seed < 0 {
		h.handleValidationError(w, "seed must not be negative")
		return
	}

	result := risk.Simulate(h.riskMap(), h.Incidents, req.Seed)
	resp := SimulateResponse{Result: result}

	if req.Save {
		if h.DB == nil {
			h.writeError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "History storage is not configured", nil)
			return
		}
		rec, err := h.DB.Simulations().Save(r.Context(), result)
		if err != nil {
			h.handleInternalError(w, err)
			return
		}
		resp.ID = rec.ID
	}

	log.Printf("[HTTP] Threat simulation: seed=%d edges=%d nodes=%d incidents=%d saved=%t",
		result.Seed, result.Statistics.EdgesActivated, result.Statistics.NodesActivated,
		result.Statistics.IncidentsActivated, req.Save)
	h.writeJSON(w, http.StatusOK, resp)
}

// HandleGetSimulation handles GET /api/v1/threats/simulations/{id}
func (h *Handler) HandleGetSimulation(w http.ResponseWriter, r *http.Request) {
	segments := PathSegments(r.URL.Path, simulationsPrefix)
	if len(segments) != 1 {
		h.handleNotFound(w, "Simulation not found")
		return
	}
	id, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		h.handleValidationError(w, "Invalid simulation ID")
		return
	}
	if h.DB == nil {
		h.writeError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "History storage is not configured", nil)
		return
	}

	rec, err := h.DB.Simulations().GetByID(r.Context(), id)
	if err != nil {
		if h.checkNotFound(err) {
			h.handleNotFound(w, "Simulation not found")
			return
		}
		h.handleInternalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SimulateResponse{ID: rec.ID, Result: rec.Result})
}

// HandleRouteRisk handles POST /api/v1/threats/route-risk. With a
// simulation id only the threats active in that run are counted.
func (h *Handler) HandleRouteRisk(w http.ResponseWriter, r *http.Request) {
	var req RouteRiskRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if h.Graph == nil || h.Graph.NodeCount() == 0 {
		h.handleRoutingError(w, graph.ErrEmptyGraph)
		return
	}

	rm := h.riskMap()
	if req.SimulationID != 0 {
		if h.DB == nil {
			h.writeError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "History storage is not configured", nil)
			return
		}
		rec, err := h.DB.Simulations().GetByID(r.Context(), req.SimulationID)
		if err != nil {
			if h.checkNotFound(err) {
				h.handleNotFound(w, "Simulation not found")
				return
			}
			h.handleInternalError(w, err)
			return
		}
		rm = rec.Result.ActiveRiskMap()
	}

	from, _, err := h.Graph.NearestNode(req.From)
	if err != nil {
		h.handleRoutingError(w, err)
		return
	}
	to, _, err := h.Graph.NearestNode(req.To)
	if err != nil {
		h.handleRoutingError(w, err)
		return
	}

	path, ok := h.Graph.ShortestPath(from, to)
	if !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "ROUTING_FAILED", "No street path between the points", map[string]interface{}{
			"from_node": from,
			"to_node":   to,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, RouteRiskResponse{
		NodePath:       path.Nodes,
		DistanceMeters: h.Graph.PathLength(path.Nodes),
		Risk:           risk.RouteRisk(rm, path.Nodes),
	})
}
