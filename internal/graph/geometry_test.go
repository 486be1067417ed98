package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
)

func TestPathGeometry_UsesEdges(t *testing.T) {
	g := squareGraph()

	result := g.PathGeometry([]int64{0, 1, 2})

	assert.Equal(t, 2.0, result.LengthMeters)
	assert.Equal(t, 0, result.Gaps)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, models.Coordinates{Lat: 0, Lng: 0}, result.Segments[0][0])
}

func TestPathGeometry_OrientsReversedEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode(1, models.Coordinates{Lat: 0, Lng: 0})
	g.AddNode(2, models.Coordinates{Lat: 0, Lng: 0.01})
	line := []models.Coordinates{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.005}, {Lat: 0, Lng: 0.01}}
	g.AddEdge(1, 2, 0, line)

	result := g.PathGeometry([]int64{2, 1})

	require.Len(t, result.Segments, 1)
	assert.Equal(t, models.Coordinates{Lat: 0, Lng: 0.01}, result.Segments[0][0])
	assert.Equal(t, models.Coordinates{Lat: 0, Lng: 0}, result.Segments[0][2])
}

func TestPathGeometry_StraightLineFallback(t *testing.T) {
	g := squareGraph()

	// 0 and 2 are diagonal with no edge
	result := g.PathGeometry([]int64{0, 2})

	n0, _ := g.Node(0)
	n2, _ := g.Node(2)
	assert.Equal(t, 1, result.Gaps)
	assert.Empty(t, result.Segments)
	assert.InDelta(t, geo.Haversine(n0.Coords, n2.Coords), result.LengthMeters, 1e-9)
}

func TestPathGeometry_UnknownNodeDoesNotPanic(t *testing.T) {
	g := squareGraph()

	result := g.PathGeometry([]int64{0, 1, 77})

	assert.Equal(t, 1.0, result.LengthMeters)
	assert.Equal(t, 1, result.Gaps)
}

func TestPathGeometry_SingleNode(t *testing.T) {
	g := squareGraph()

	result := g.PathGeometry([]int64{3})

	assert.Equal(t, 0.0, result.LengthMeters)
	assert.Empty(t, result.Segments)
}
