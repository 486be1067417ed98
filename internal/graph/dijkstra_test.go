package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-tour-router/internal/models"
)

func TestShortestPath_SquareTie(t *testing.T) {
	g := squareGraph()

	path, ok := g.ShortestPath(0, 2)

	require.True(t, ok)
	assert.Equal(t, 2.0, path.Cost)
	require.Len(t, path.Nodes, 3)
	assert.Equal(t, int64(0), path.Nodes[0])
	assert.Equal(t, int64(2), path.Nodes[2])
	assert.Contains(t, []int64{1, 3}, path.Nodes[1])
}

func TestShortestPath_RiskAvoidsEdge(t *testing.T) {
	g := squareGraph()
	rm := NewRiskMap()
	rm.SetEdge(0, 1, 0.9)
	g.SetRisk(rm)

	path, ok := g.ShortestPath(0, 2)

	require.True(t, ok)
	assert.Equal(t, []int64{0, 3, 2}, path.Nodes)
	assert.InDelta(t, 2.0, path.Cost, 1e-9)

	risky := g.cost.Cost(1, rm.EdgeRisk(0, 1), 0) + 1
	assert.InDelta(t, 3.8, risky, 1e-9)
}

func TestShortestPath_NodePenalty(t *testing.T) {
	g := squareGraph()
	rm := NewRiskMap()
	rm.SetNode(3, 0.1)
	g.SetRisk(rm)

	path, ok := g.ShortestPath(0, 2)

	require.True(t, ok)
	assert.Equal(t, []int64{0, 1, 2}, path.Nodes)
}

func TestShortestPath_RiskDoesNotMutateLengths(t *testing.T) {
	g := squareGraph()
	rm := NewRiskMap()
	rm.SetEdge(0, 1, 0.9)
	g.SetRisk(rm)

	g.ShortestPath(0, 2)

	e, ok := g.EdgeBetween(0, 1)
	require.True(t, ok)
	assert.Equal(t, 1.0, e.Length)
	assert.Equal(t, 2.0, g.PathLength([]int64{0, 1, 2}))
}

func TestShortestPath_StartEqualsGoal(t *testing.T) {
	g := squareGraph()

	path, ok := g.ShortestPath(1, 1)

	require.True(t, ok)
	assert.Equal(t, []int64{1}, path.Nodes)
	assert.Equal(t, 0.0, path.Cost)
}

func TestShortestPath_Disconnected(t *testing.T) {
	g := squareGraph()
	g.AddNode(10, models.Coordinates{Lat: 1, Lng: 1})
	g.AddNode(11, models.Coordinates{Lat: 1, Lng: 1.001})
	g.AddEdge(10, 11, 1, nil)

	_, ok := g.ShortestPath(0, 11)
	assert.False(t, ok)

	_, ok = g.ShortestPath(0, 404)
	assert.False(t, ok)
}

func TestShortestPath_IsolatedNode(t *testing.T) {
	g := squareGraph()
	g.AddNode(20, models.Coordinates{Lat: 2, Lng: 2})

	_, ok := g.ShortestPath(20, 0)
	assert.False(t, ok)
}

func TestShortestPath_RiskMonotonicity(t *testing.T) {
	risks := []float64{0, 0.1, 0.2, 0.3, 0.49, 0.5, 0.7, 0.9, 1.0}

	prev := -1.0
	for _, p := range risks {
		g := squareGraph()
		rm := NewRiskMap()
		rm.SetEdge(0, 1, p)
		rm.SetEdge(2, 3, 0.25)
		g.SetRisk(rm)

		path, ok := g.ShortestPath(0, 2)
		require.True(t, ok)
		assert.GreaterOrEqual(t, path.Cost, prev, "risk=%.2f", p)
		prev = path.Cost
	}
}

func TestShortestPath_PrefersLongerSaferDetour(t *testing.T) {
	// direct 0-1 is 100m through a risky edge, detour 0-2-1 is 180m and clean
	g := NewGraph()
	g.AddNode(0, models.Coordinates{Lat: 0, Lng: 0})
	g.AddNode(1, models.Coordinates{Lat: 0, Lng: 0.001})
	g.AddNode(2, models.Coordinates{Lat: 0.0005, Lng: 0.0005})
	g.AddEdge(0, 1, 100, nil)
	g.AddEdge(0, 2, 90, nil)
	g.AddEdge(2, 1, 90, nil)

	path, ok := g.ShortestPath(0, 1)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 1}, path.Nodes)

	rm := NewRiskMap()
	rm.SetEdge(0, 1, 0.5)
	g.SetRisk(rm)

	path, ok = g.ShortestPath(0, 1)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 2, 1}, path.Nodes)
	assert.InDelta(t, 180.0, path.Cost, 1e-9)
}
