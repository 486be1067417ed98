package tour

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-tour-router/internal/distance"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/routing"
	"property-tour-router/internal/schedule"
	"property-tour-router/internal/testutil"
	"property-tour-router/internal/transit"
)

const spacing = 0.001

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeHistory struct {
	mu            sync.Mutex
	itineraries   []*models.Itinerary
	cancellations []models.CancellationEvent
}

func (f *fakeHistory) SaveItinerary(ctx context.Context, sessionID string, it *models.Itinerary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itineraries = append(f.itineraries, it)
	return nil
}

func (f *fakeHistory) RecordCancellation(ctx context.Context, e models.CancellationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancellations = append(f.cancellations, e)
	return nil
}

func newTestEngine(g *graph.Graph, opts Options) *Engine {
	calc := distance.NewGraphCalculator(g, 0)
	planner := transit.NewPlanner(g, calc, transit.DefaultParams(), nil)
	if opts.NewTicker == nil {
		opts.NewTicker = schedule.NewManualTicker().Factory()
	}
	if opts.Seed == 0 {
		opts.Seed = 11
	}
	opts.Now = func() time.Time { return fixedNow }
	return NewEngine(g, calc, planner, opts)
}

func newTestSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s := newTestEngine(testutil.GridGraph(5, 5, spacing), opts).NewSession("test")
	t.Cleanup(s.Close)
	return s
}

// shuffledStops returns the sample stops in a deliberately poor order
func shuffledStops() []models.Stop {
	stops := testutil.SampleStops(spacing)
	return []models.Stop{stops[2], stops[0], stops[1]}
}

func stopIDs(stops []models.Stop) []string {
	ids := make([]string, len(stops))
	for i, s := range stops {
		ids[i] = s.ID
	}
	return ids
}

func addAll(t *testing.T, s *Session, stops []models.Stop) {
	t.Helper()
	for _, stop := range stops {
		require.NoError(t, s.AddStop(stop))
	}
}

func TestOptimize_ReordersStops(t *testing.T) {
	for _, strategy := range []string{routing.StrategyTwoOpt, routing.StrategyInsertion} {
		t.Run(strategy, func(t *testing.T) {
			s := newTestSession(t, Options{})
			require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
			addAll(t, s, shuffledStops())

			ordered, err := s.Optimize(context.Background(), strategy)

			require.NoError(t, err)
			assert.Equal(t, []string{"casa-1", "depto-2", "casa-3"}, stopIDs(ordered))
			assert.Equal(t, ordered, s.Stops())
		})
	}
}

func TestOptimize_AntColonyKeepsAllStops(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, shuffledStops())

	ordered, err := s.Optimize(context.Background(), routing.StrategyACO)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"casa-1", "depto-2", "casa-3"}, stopIDs(ordered))
}

func TestOptimize_StructuralErrors(t *testing.T) {
	s := newTestSession(t, Options{})

	_, err := s.Optimize(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoStartPoint)

	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	_, err = s.Optimize(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoStops)

	addAll(t, s, shuffledStops())
	_, err = s.Optimize(context.Background(), "simulated-annealing")
	assert.ErrorIs(t, err, routing.ErrUnknownStrategy)
	assert.False(t, s.Monitoring())
}

func TestOptimize_EmptyGraphCannotRoute(t *testing.T) {
	s := newTestEngine(graph.NewGraph(), Options{}).NewSession("empty")
	t.Cleanup(s.Close)
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, shuffledStops())

	_, err := s.Optimize(context.Background(), "")

	var cannot *ErrCannotRoute
	require.True(t, errors.As(err, &cannot))
	assert.Empty(t, cannot.StopID)
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)
	assert.Equal(t, stopIDs(shuffledStops()), stopIDs(s.Stops()))
}

func TestGenerateRoute(t *testing.T) {
	history := &fakeHistory{}
	s := newTestSession(t, Options{History: history})
	start := testutil.GridCoords(0, 0, spacing)
	require.NoError(t, s.SetStart(start))
	addAll(t, s, testutil.SampleStops(spacing))

	it, err := s.GenerateRoute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, start, it.Start)
	assert.Len(t, it.Stops, 3)
	assert.Len(t, it.Legs, 3)
	require.Len(t, it.Arrivals, 3)
	assert.Empty(t, it.Warnings)
	assert.Equal(t, fixedNow, it.GeneratedAt)
	assert.Equal(t, routing.StrategyTwoOpt, it.Strategy)
	assert.InDelta(t, it.TotalDurationMinutes, it.Arrivals[2].ArrivalMinutes, 1e-9)
	assert.Same(t, it, s.Itinerary())
	require.Len(t, history.itineraries, 1)
	assert.Same(t, it, history.itineraries[0])

	assert.True(t, s.Monitoring())
	appts := s.Appointments()
	require.Len(t, appts, 3)
	for i, a := range appts {
		assert.Equal(t, models.AppointmentActive, a.Status)
		assert.Equal(t, 0.2, a.CancellationProbability)
		expected := fixedNow.Add(time.Duration(it.Arrivals[i].ArrivalMinutes * float64(time.Minute)))
		assert.Equal(t, expected, a.ScheduledAt)
	}
}

func TestGenerateRoute_EmptyGraphWalks(t *testing.T) {
	s := newTestEngine(graph.NewGraph(), Options{}).NewSession("empty")
	t.Cleanup(s.Close)
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, testutil.SampleStops(spacing))

	it, err := s.GenerateRoute(context.Background())

	require.NoError(t, err)
	for _, leg := range it.Legs {
		assert.Equal(t, models.LegWalk, leg.Kind)
	}
	assert.Equal(t, []string{"street network unavailable, walking legs only"}, it.Warnings)
}

func TestGenerateRoute_FarStopWarning(t *testing.T) {
	s := newTestSession(t, Options{})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	far := testutil.GridCoords(0, 0, spacing)
	far.Lat -= 0.01
	require.NoError(t, s.AddStop(models.Stop{ID: "lejos", Lat: far.Lat, Lng: far.Lng}))

	it, err := s.GenerateRoute(context.Background())

	require.NoError(t, err)
	require.Len(t, it.Warnings, 1)
	assert.Contains(t, it.Warnings[0], "lejos")
}

func TestGenerateRoute_StructuralErrors(t *testing.T) {
	s := newTestSession(t, Options{})
	_, err := s.GenerateRoute(context.Background())
	assert.ErrorIs(t, err, ErrNoStartPoint)

	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	_, err = s.GenerateRoute(context.Background())
	assert.ErrorIs(t, err, ErrNoStops)
	assert.Nil(t, s.Itinerary())
}

func TestStops_AddRemove(t *testing.T) {
	s := newTestSession(t, Options{})
	stops := testutil.SampleStops(spacing)
	addAll(t, s, stops)

	assert.ErrorIs(t, s.AddStop(stops[0]), ErrDuplicateStop)
	assert.ErrorIs(t, s.AddStop(models.Stop{}), ErrUnknownStop)
	assert.ErrorIs(t, s.AddStop(models.Stop{ID: "x", Lat: 95}), ErrInvalidCoordinates)

	require.NoError(t, s.RemoveStop("depto-2"))
	assert.Equal(t, []string{"casa-1", "casa-3"}, stopIDs(s.Stops()))
	assert.ErrorIs(t, s.RemoveStop("depto-2"), ErrUnknownStop)
}

func TestSetStart_Validates(t *testing.T) {
	s := newTestSession(t, Options{})
	_, ok := s.Start()
	assert.False(t, ok)

	assert.ErrorIs(t, s.SetStart(models.Coordinates{Lat: -91}), ErrInvalidCoordinates)
	require.NoError(t, s.SetStart(models.Coordinates{Lat: -33.43, Lng: -70.62}))
	got, ok := s.Start()
	assert.True(t, ok)
	assert.Equal(t, -33.43, got.Lat)
}

func TestMonitoring_AppointmentsFollowStops(t *testing.T) {
	s := newTestSession(t, Options{})
	stops := testutil.SampleStops(spacing)
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	require.NoError(t, s.AddStop(stops[0]))
	assert.Empty(t, s.Appointments())

	_, err := s.GenerateRoute(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Appointments(), 1)

	require.NoError(t, s.AddStop(stops[1]))
	appts := s.Appointments()
	require.Len(t, appts, 2)
	assert.Equal(t, models.AppointmentScheduled, appts[1].Status)

	require.NoError(t, s.RemoveStop(stops[0].ID))
	appts = s.Appointments()
	require.Len(t, appts, 1)
	assert.Equal(t, stops[1].ID, appts[0].StopID)
}

func TestMonitoring_Disabled(t *testing.T) {
	s := newTestSession(t, Options{DisableMonitoring: true})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, testutil.SampleStops(spacing))

	_, err := s.GenerateRoute(context.Background())

	require.NoError(t, err)
	assert.False(t, s.Monitoring())
	assert.Empty(t, s.Appointments())
}

func TestForcedCancellation_StopsMonitor(t *testing.T) {
	history := &fakeHistory{}
	s := newTestSession(t, Options{CancellationProbability: Probability(1.0), History: history})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	stop := testutil.SampleStops(spacing)[0]
	require.NoError(t, s.AddStop(stop))
	_, err := s.GenerateRoute(context.Background())
	require.NoError(t, err)
	require.True(t, s.Monitoring())

	result := s.Tick(context.Background())

	require.Len(t, result.Events, 1)
	assert.NoError(t, result.Err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 0, result.Remaining)

	assert.Empty(t, s.Stops())
	assert.False(t, s.Monitoring())
	appts := s.Appointments()
	require.Len(t, appts, 1)
	assert.Equal(t, models.AppointmentCancelled, appts[0].Status)

	cancellations := s.Cancellations()
	require.Len(t, cancellations, 1)
	assert.Equal(t, stop.ID, cancellations[0].StopID)
	assert.Equal(t, stop.Name, cancellations[0].StopName)
	assert.Equal(t, "test", cancellations[0].SessionID)
	assert.Less(t, cancellations[0].Draw, 1.0)
	assert.Len(t, history.cancellations, 1)

	it := s.Itinerary()
	require.NotNil(t, it)
	assert.Empty(t, it.Legs)
	assert.Empty(t, it.Stops)
}

func TestCancellationProbability_Options(t *testing.T) {
	g := testutil.SquareGraph()
	tests := []struct {
		name string
		p    *float64
		want float64
	}{
		{"unset", nil, schedule.DefaultCancellationProbability},
		{"zero", Probability(0), 0},
		{"explicit", Probability(0.45), 0.45},
		{"above one", Probability(3), 1},
		{"negative", Probability(-0.2), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(g, Options{CancellationProbability: tt.p})
			assert.Equal(t, tt.want, e.CancellationProbability())
		})
	}
}

func TestZeroCancellationProbability_NeverCancels(t *testing.T) {
	s := newTestSession(t, Options{CancellationProbability: Probability(0)})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, testutil.SampleStops(spacing))
	_, err := s.GenerateRoute(context.Background())
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		result := s.Tick(context.Background())
		require.NoError(t, result.Err)
		assert.Empty(t, result.Events)
	}

	assert.Len(t, s.Stops(), 3)
	assert.Empty(t, s.Cancellations())
	for _, a := range s.Appointments() {
		assert.Equal(t, 0.0, a.CancellationProbability)
		assert.False(t, a.Cancelled())
	}
}

func TestForcedCancellation_ThroughTickLoop(t *testing.T) {
	ticker := schedule.NewManualTicker()
	s := newTestSession(t, Options{CancellationProbability: Probability(1.0), NewTicker: ticker.Factory()})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	addAll(t, s, testutil.SampleStops(spacing))
	_, err := s.GenerateRoute(context.Background())
	require.NoError(t, err)

	require.True(t, ticker.Fire(fixedNow.Add(30*time.Second)))

	assert.Eventually(t, func() bool { return !s.Monitoring() }, time.Second, 10*time.Millisecond)
	assert.Empty(t, s.Stops())
	assert.Len(t, s.Cancellations(), 3)
}

func TestCancellation_Conservation(t *testing.T) {
	s := newTestSession(t, Options{CancellationProbability: Probability(0.5), Seed: 1234})
	require.NoError(t, s.SetStart(testutil.GridCoords(0, 0, spacing)))
	all := testutil.SampleStops(spacing)
	addAll(t, s, all)
	_, err := s.GenerateRoute(context.Background())
	require.NoError(t, err)

	for round := 0; round < 20 && s.Monitoring(); round++ {
		result := s.Tick(context.Background())
		require.NoError(t, result.Err)

		inItinerary := make(map[string]bool)
		for _, stop := range s.Stops() {
			inItinerary[stop.ID] = true
		}
		cancelled := make(map[string]bool)
		for _, e := range s.Cancellations() {
			cancelled[e.StopID] = true
		}
		appts := make(map[string]models.Appointment)
		for _, a := range s.Appointments() {
			appts[a.StopID] = a
		}

		for _, stop := range all {
			a, ok := appts[stop.ID]
			require.True(t, ok, "stop %s has no appointment", stop.ID)
			if inItinerary[stop.ID] {
				assert.Equal(t, models.AppointmentActive, a.Status)
				assert.False(t, cancelled[stop.ID])
			} else {
				assert.Equal(t, models.AppointmentCancelled, a.Status)
				assert.True(t, cancelled[stop.ID])
			}
		}

		if it := s.Itinerary(); it != nil {
			assert.Equal(t, stopIDs(s.Stops()), stopIDs(it.Stops))
		}
	}
}

func TestErrCannotRoute_Message(t *testing.T) {
	err := &ErrCannotRoute{Reason: "no street network node near point", StopID: "casa-1"}
	assert.Equal(t, "cannot route: no street network node near point (stop casa-1)", err.Error())

	err = &ErrCannotRoute{Reason: "no street network node near point"}
	assert.Equal(t, "cannot route: no street network node near point", err.Error())
}
