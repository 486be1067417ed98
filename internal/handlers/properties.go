package handlers

import (
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"property-tour-router/internal/listings"
	"property-tour-router/internal/models"
)

// PropertyListResponse is a page of catalog listings
type PropertyListResponse struct {
	Properties []models.Property `json:"properties"`
	Total      int               `json:"total"`
}

// FilterRequest narrows the catalog by kind and POI proximity
type FilterRequest struct {
	Categories   []models.POICategory `json:"categories"`
	RadiusMeters float64              `json:"radius_m,omitempty"`
	Type         models.PropertyType  `json:"type,omitempty"`
	Operation    models.Operation     `json:"operation,omitempty"`
}

func (h *Handler) properties() []models.Property {
	if h.Dataset == nil {
		return []models.Property{}
	}
	return h.Dataset.Properties
}

func (h *Handler) pois() []models.PointOfInterest {
	if h.Dataset == nil {
		return []models.PointOfInterest{}
	}
	return h.Dataset.POIs
}

func matchKind(props []models.Property, t models.PropertyType, op models.Operation) []models.Property {
	return lo.Filter(props, func(p models.Property, _ int) bool {
		return (t == "" || p.Type == t) && (op == "" || p.Operation == op)
	})
}

// HandleListProperties handles GET /api/v1/properties
func (h *Handler) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	props := matchKind(h.properties(), models.PropertyType(q.Get("type")), models.Operation(q.Get("operation")))
	total := len(props)

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			h.handleValidationError(w, "Invalid limit")
			return
		}
		if limit < len(props) {
			props = props[:limit]
		}
	}

	h.writeJSON(w, http.StatusOK, PropertyListResponse{Properties: props, Total: total})
}

// HandleFilterProperties handles POST /api/v1/properties/filter
func (h *Handler) HandleFilterProperties(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.RadiusMeters < 0 {
		h.handleValidationError(w, "radius_m must not be negative")
		return
	}
	radius := req.RadiusMeters
	if radius == 0 {
		radius = listings.DefaultProximityRadius
	}

	props := matchKind(h.properties(), req.Type, req.Operation)
	props = listings.FilterByProximity(props, h.pois(), req.Categories, radius)
	if props == nil {
		props = []models.Property{}
	}

	h.writeJSON(w, http.StatusOK, PropertyListResponse{Properties: props, Total: len(props)})
}

// HandleListPOIs handles GET /api/v1/pois
func (h *Handler) HandleListPOIs(w http.ResponseWriter, r *http.Request) {
	pois := h.pois()
	if category := r.URL.Query().Get("category"); category != "" {
		pois = listings.GroupByCategory(pois)[models.POICategory(category)]
	}
	if pois == nil {
		pois = []models.PointOfInterest{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pois":  pois,
		"total": len(pois),
	})
}
