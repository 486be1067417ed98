package graph

import (
	"math"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
	"property-tour-router/internal/spatial"
)

// BuildIndex prepares a kd-tree over the node table for faster snapping.
// Without it NearestNode falls back to a linear scan.
func (g *Graph) BuildIndex() {
	ids := g.NodeIDs()
	points := make([]models.Coordinates, len(ids))
	for i, id := range ids {
		points[i] = g.nodes[id].Coords
	}
	g.index = spatial.New(points)
	g.ids = ids
}

// NearestNode returns the node closest to c by great-circle distance.
// Ties go to the lowest node id.
func (g *Graph) NearestNode(c models.Coordinates) (int64, float64, error) {
	if len(g.nodes) == 0 {
		return 0, 0, ErrEmptyGraph
	}

	if g.index != nil && g.index.Len() == len(g.ids) {
		results := g.index.Nearest(c, 1)
		if len(results) > 0 {
			return g.ids[results[0].Index], results[0].Distance, nil
		}
	}

	var nearest int64
	minDistance := math.Inf(1)
	found := false
	for id, node := range g.nodes {
		d := geo.Haversine(c, node.Coords)
		if !found || d < minDistance || (d == minDistance && id < nearest) {
			minDistance = d
			nearest = id
			found = true
		}
	}
	return nearest, minDistance, nil
}
