package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-tour-router/internal/distance"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/listings"
	"property-tour-router/internal/models"
	"property-tour-router/internal/risk"
	"property-tour-router/internal/schedule"
	"property-tour-router/internal/sqlite"
	"property-tour-router/internal/testutil"
	"property-tour-router/internal/tour"
	"property-tour-router/internal/transit"
)

const spacing = 0.001

func testDataset() *listings.Dataset {
	stops := testutil.SampleStops(spacing)
	props := make([]models.Property, len(stops))
	for i, s := range stops {
		props[i] = models.Property{
			ID: s.ID, Title: s.Name, Lat: s.Lat, Lng: s.Lng,
			Type: models.PropertyHouse, Operation: models.OperationSale,
		}
	}
	props[1].Type = models.PropertyApartment

	origin := testutil.GridCoords(0, 0, spacing)
	corner := testutil.GridCoords(4, 4, spacing)
	return &listings.Dataset{
		Properties: props,
		POIs: []models.PointOfInterest{
			{Name: "Estacion Origen", Category: models.CategoryMetro, Lat: origin.Lat, Lng: origin.Lng},
			{Name: "Cesfam Esquina", Category: models.CategoryHealth, Lat: corner.Lat, Lng: corner.Lng},
		},
	}
}

func newTestHandlerWith(t *testing.T, g *graph.Graph, withDB bool) *Handler {
	t.Helper()
	calc := distance.NewGraphCalculator(g, 0)
	planner := transit.NewPlanner(g, calc, transit.DefaultParams(), nil)
	opts := tour.Options{
		Seed:      5,
		NewTicker: schedule.NewManualTicker().Factory(),
	}

	h := &Handler{
		Dataset: testDataset(),
		Graph:   g,
		Version: "test",
	}
	if withDB {
		store, err := sqlite.New(filepath.Join(t.TempDir(), "tours.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		h.DB = store
		opts.History = store
	}

	h.Sessions = tour.NewSessionStore(tour.NewEngine(g, calc, planner, opts))
	t.Cleanup(h.Sessions.Close)
	return h
}

func setupTestHandler(t *testing.T) *Handler {
	return newTestHandlerWith(t, testutil.GridGraph(5, 5, spacing), true)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func createSession(t *testing.T, h *Handler, req CreateSessionRequest) SessionResponse {
	t.Helper()
	w := httptest.NewRecorder()
	h.HandleCreateSession(w, httptest.NewRequest("POST", "/api/v1/sessions", jsonBody(t, req)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func startCoords() *models.Coordinates {
	c := testutil.GridCoords(0, 0, spacing)
	return &c
}

func TestHandleHealthCheck(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "connected", resp["database"])
	assert.Equal(t, float64(25), resp["graph_nodes"])
	assert.Equal(t, float64(0), resp["sessions"])
}

func TestHandleHealthCheck_NoDatabase(t *testing.T) {
	h := newTestHandlerWith(t, testutil.GridGraph(2, 2, spacing), false)

	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "disabled", resp["database"])
}

func TestHandleCreateSession(t *testing.T) {
	h := setupTestHandler(t)

	resp := createSession(t, h, CreateSessionRequest{
		Start:       startCoords(),
		PropertyIDs: []string{"casa-3", "casa-1"},
		Stops:       []models.Stop{{ID: "extra", Name: "Extra", Lat: -33.428, Lng: -70.618}},
	})

	assert.NotEmpty(t, resp.ID)
	require.NotNil(t, resp.Start)
	assert.Equal(t, *startCoords(), *resp.Start)
	require.Len(t, resp.Stops, 3)
	assert.Equal(t, "casa-3", resp.Stops[0].ID)
	assert.Equal(t, "casa-1", resp.Stops[1].ID)
	assert.Equal(t, "extra", resp.Stops[2].ID)
	assert.Empty(t, resp.Appointments)
	assert.False(t, resp.Monitoring)
}

func TestHandleCreateSession_EmptyBody(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleCreateSession(w, httptest.NewRequest("POST", "/api/v1/sessions", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, h.Sessions.IDs(), 1)
}

func TestHandleCreateSession_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"start":`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown property", `{"property_ids":["nope"]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"stop without id", `{"stops":[{"lat":1,"lng":1}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"start out of range", `{"start":{"lat":95,"lng":0}}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate stop", `{"property_ids":["casa-1","casa-1"]}`, http.StatusConflict, "CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTestHandler(t)

			w := httptest.NewRecorder()
			h.HandleCreateSession(w, httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Error.Code)
			assert.Empty(t, h.Sessions.IDs(), "failed creation leaves no session behind")
		})
	}
}

func TestHandleGetSession(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{PropertyIDs: []string{"casa-1"}})

	w := httptest.NewRecorder()
	h.HandleGetSession(w, httptest.NewRequest("GET", "/api/v1/sessions/"+created.ID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Nil(t, resp.Start)
	assert.Len(t, resp.Stops, 1)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleGetSession(w, httptest.NewRequest("GET", "/api/v1/sessions/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)
}

func TestHandleDeleteSession(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{})

	w := httptest.NewRecorder()
	h.HandleDeleteSession(w, httptest.NewRequest("DELETE", "/api/v1/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, h.Sessions.Get(created.ID))

	w = httptest.NewRecorder()
	h.HandleDeleteSession(w, httptest.NewRequest("DELETE", "/api/v1/sessions/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSetStart(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{})
	path := "/api/v1/sessions/" + created.ID + "/start"

	w := httptest.NewRecorder()
	h.HandleSetStart(w, httptest.NewRequest("PUT", path, jsonBody(t, models.Coordinates{Lat: -33.43, Lng: -70.62})))
	assert.Equal(t, http.StatusOK, w.Code)
	start, ok := h.Sessions.Get(created.ID).Start()
	require.True(t, ok)
	assert.Equal(t, -33.43, start.Lat)

	w = httptest.NewRecorder()
	h.HandleSetStart(w, httptest.NewRequest("PUT", path, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleSetStart(w, httptest.NewRequest("PUT", path, jsonBody(t, models.Coordinates{Lat: 0, Lng: 200})))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	start, _ = h.Sessions.Get(created.ID).Start()
	assert.Equal(t, -33.43, start.Lat)

	w = httptest.NewRecorder()
	h.HandleSetStart(w, httptest.NewRequest("PUT", "/api/v1/sessions/missing/start", jsonBody(t, models.Coordinates{Lat: -33.43, Lng: -70.62})))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleAddAndRemoveStop(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{})
	stopsPath := "/api/v1/sessions/" + created.ID + "/stops"

	w := httptest.NewRecorder()
	h.HandleAddStop(w, httptest.NewRequest("POST", stopsPath, jsonBody(t, StopRequest{PropertyID: "depto-2"})))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.HandleAddStop(w, httptest.NewRequest("POST", stopsPath, jsonBody(t, StopRequest{PropertyID: "depto-2"})))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	h.HandleAddStop(w, httptest.NewRequest("POST", stopsPath, jsonBody(t, StopRequest{})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleRemoveStop(w, httptest.NewRequest("DELETE", stopsPath+"/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.HandleRemoveStop(w, httptest.NewRequest("DELETE", stopsPath+"/depto-2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, h.Sessions.Get(created.ID).Stops())
}

func TestHandleOptimize(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{
		Start:       startCoords(),
		PropertyIDs: []string{"casa-3", "casa-1", "depto-2"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/optimize", jsonBody(t, OptimizeRequest{Strategy: "two-opt"}))
	h.HandleOptimize(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Stops      []models.Stop `json:"stops"`
		Monitoring bool          `json:"monitoring"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	ids := make([]string, len(resp.Stops))
	for i, s := range resp.Stops {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"casa-1", "depto-2", "casa-3"}, ids)
	assert.True(t, resp.Monitoring)
}

func TestHandleOptimize_Errors(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{PropertyIDs: []string{"casa-1"}})
	path := "/api/v1/sessions/" + created.ID + "/optimize"

	w := httptest.NewRecorder()
	h.HandleOptimize(w, httptest.NewRequest("POST", path, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ROUTING_FAILED", decodeError(t, w).Error.Code)

	require.NoError(t, h.Sessions.Get(created.ID).SetStart(*startCoords()))
	w = httptest.NewRecorder()
	h.HandleOptimize(w, httptest.NewRequest("POST", path, jsonBody(t, OptimizeRequest{Strategy: "genetic"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleOptimize_EmptyGraph(t *testing.T) {
	h := newTestHandlerWith(t, graph.NewGraph(), false)
	created := createSession(t, h, CreateSessionRequest{Start: startCoords(), PropertyIDs: []string{"casa-1"}})

	w := httptest.NewRecorder()
	h.HandleOptimize(w, httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/optimize", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "ROUTING_FAILED", resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)
}

func TestHandleGenerateRoute(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{
		Start:       startCoords(),
		PropertyIDs: []string{"casa-1", "depto-2"},
	})

	w := httptest.NewRecorder()
	h.HandleGenerateRoute(w, httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/route", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var it models.Itinerary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&it))
	assert.Len(t, it.Stops, 2)
	assert.Len(t, it.Arrivals, 2)
	assert.NotEmpty(t, it.Legs)
	assert.Greater(t, it.TotalDistanceMeters, 0.0)

	w = httptest.NewRecorder()
	h.HandleSessionHistory(w, httptest.NewRequest("GET", "/api/v1/sessions/"+created.ID+"/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Itineraries []json.RawMessage `json:"itineraries"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	assert.Len(t, history.Itineraries, 1)
}

func TestHandleGenerateRoute_NoStops(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{Start: startCoords()})

	w := httptest.NewRecorder()
	h.HandleGenerateRoute(w, httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/route", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleListCancellations(t *testing.T) {
	h := setupTestHandler(t)
	created := createSession(t, h, CreateSessionRequest{})

	w := httptest.NewRecorder()
	h.HandleListCancellations(w, httptest.NewRequest("GET", "/api/v1/sessions/"+created.ID+"/cancellations", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Cancellations []models.CancellationEvent `json:"cancellations"`
		Total         int                        `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotNil(t, resp.Cancellations)
	assert.Equal(t, 0, resp.Total)
}

func TestHandleSessionHistory_Disabled(t *testing.T) {
	h := newTestHandlerWith(t, testutil.GridGraph(2, 2, spacing), false)

	w := httptest.NewRecorder()
	h.HandleSessionHistory(w, httptest.NewRequest("GET", "/api/v1/sessions/any/history", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListProperties(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleListProperties(w, httptest.NewRequest("GET", "/api/v1/properties?type=house", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp PropertyListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)

	w = httptest.NewRecorder()
	h.HandleListProperties(w, httptest.NewRequest("GET", "/api/v1/properties?limit=1", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Properties, 1)

	w = httptest.NewRecorder()
	h.HandleListProperties(w, httptest.NewRequest("GET", "/api/v1/properties?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFilterProperties(t *testing.T) {
	tests := []struct {
		name string
		req  FilterRequest
		want []string
	}{
		{"no categories keeps all", FilterRequest{}, []string{"casa-1", "depto-2", "casa-3"}},
		{"metro within default radius", FilterRequest{Categories: []models.POICategory{models.CategoryMetro}}, []string{"casa-1", "casa-3"}},
		{"metro within 400m", FilterRequest{Categories: []models.POICategory{models.CategoryMetro}, RadiusMeters: 400}, []string{"casa-1"}},
		{"metro and health", FilterRequest{Categories: []models.POICategory{models.CategoryMetro, models.CategoryHealth}}, []string{"casa-1", "casa-3"}},
		{"category without pois", FilterRequest{Categories: []models.POICategory{models.CategoryPolice}}, []string{}},
		{"apartments near health", FilterRequest{Categories: []models.POICategory{models.CategoryHealth}, Type: models.PropertyApartment}, []string{"depto-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupTestHandler(t)

			w := httptest.NewRecorder()
			h.HandleFilterProperties(w, httptest.NewRequest("POST", "/api/v1/properties/filter", jsonBody(t, tt.req)))

			require.Equal(t, http.StatusOK, w.Code)
			var resp PropertyListResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			ids := []string{}
			for _, p := range resp.Properties {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestHandleFilterProperties_NegativeRadius(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleFilterProperties(w, httptest.NewRequest("POST", "/api/v1/properties/filter", bytes.NewBufferString(`{"radius_m":-1}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListPOIs(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleListPOIs(w, httptest.NewRequest("GET", "/api/v1/pois?category=health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		POIs  []models.PointOfInterest `json:"pois"`
		Total int                      `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Cesfam Esquina", resp.POIs[0].Name)
}

func TestHandleSimulateThreats(t *testing.T) {
	g := testutil.GridGraph(2, 2, spacing)
	rm := graph.NewRiskMap()
	rm.SetEdge(0, 1, 1.0)
	rm.SetEdge(1, 3, 0.0)
	rm.SetNode(2, 1.0)
	g.SetRisk(rm)

	h := newTestHandlerWith(t, g, true)
	h.Incidents = []risk.Incident{{ID: 1, Kind: "accident", Probability: 1.0}}

	w := httptest.NewRecorder()
	h.HandleSimulateThreats(w, httptest.NewRequest("POST", "/api/v1/threats/simulate", jsonBody(t, SimulateRequest{Seed: 42, Save: true})))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SimulateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, int64(42), resp.Result.Seed)
	assert.Equal(t, 2, resp.Result.Statistics.EdgesEvaluated)
	assert.Equal(t, 1, resp.Result.Statistics.NodesActivated)
	assert.Equal(t, 1, resp.Result.Statistics.IncidentsActivated)

	w = httptest.NewRecorder()
	h.HandleGetSimulation(w, httptest.NewRequest("GET", "/api/v1/threats/simulations/"+strconv.FormatInt(resp.ID, 10), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stored SimulateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stored))
	assert.Equal(t, resp.Result.Statistics, stored.Result.Statistics)
}

func TestHandleSimulateThreats_Reproducible(t *testing.T) {
	g := testutil.GridGraph(3, 3, spacing)
	rm := graph.NewRiskMap()
	for _, e := range g.Edges() {
		rm.SetEdge(e.U, e.V, 0.5)
	}
	g.SetRisk(rm)
	h := newTestHandlerWith(t, g, false)

	run := func() *SimulateResponse {
		w := httptest.NewRecorder()
		h.HandleSimulateThreats(w, httptest.NewRequest("POST", "/api/v1/threats/simulate", jsonBody(t, SimulateRequest{Seed: 7})))
		require.Equal(t, http.StatusOK, w.Code)
		var resp SimulateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return &resp
	}

	first, second := run(), run()
	assert.Equal(t, first.Result.ActiveEdges, second.Result.ActiveEdges)
	assert.Zero(t, first.ID)
}

func TestHandleGetSimulation_Errors(t *testing.T) {
	h := setupTestHandler(t)

	w := httptest.NewRecorder()
	h.HandleGetSimulation(w, httptest.NewRequest("GET", "/api/v1/threats/simulations/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleGetSimulation(w, httptest.NewRequest("GET", "/api/v1/threats/simulations/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleRouteRisk(t *testing.T) {
	g := testutil.GridGraph(1, 3, spacing)
	rm := graph.NewRiskMap()
	rm.SetEdge(0, 1, 0.5)
	rm.SetNode(1, 0.3)
	g.SetRisk(rm)
	h := newTestHandlerWith(t, g, false)

	req := RouteRiskRequest{From: testutil.GridCoords(0, 0, spacing), To: testutil.GridCoords(0, 2, spacing)}
	w := httptest.NewRecorder()
	h.HandleRouteRisk(w, httptest.NewRequest("POST", "/api/v1/threats/route-risk", jsonBody(t, req)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RouteRiskResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []int64{0, 1, 2}, resp.NodePath)
	assert.Equal(t, 2, resp.Risk.TotalSegments)
	assert.Equal(t, 1, resp.Risk.HighRiskSegments)
	assert.InDelta(t, 0.25, resp.Risk.AvgEdgeRisk, 1e-9)
	assert.InDelta(t, 0.1, resp.Risk.AvgNodeRisk, 1e-9)
	assert.Greater(t, resp.DistanceMeters, 0.0)
}

func TestHandleRouteRisk_EmptyGraph(t *testing.T) {
	h := newTestHandlerWith(t, graph.NewGraph(), false)

	w := httptest.NewRecorder()
	h.HandleRouteRisk(w, httptest.NewRequest("POST", "/api/v1/threats/route-risk", jsonBody(t, RouteRiskRequest{})))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPathSegments(t *testing.T) {
	assert.Equal(t, []string{"abc", "stops", "s1"}, PathSegments("/api/v1/sessions/abc/stops/s1", "/api/v1/sessions/"))
	assert.Equal(t, []string{"abc"}, PathSegments("/api/v1/sessions/abc/", "/api/v1/sessions/"))
	assert.Nil(t, PathSegments("/api/v1/sessions/", "/api/v1/sessions/"))
}
