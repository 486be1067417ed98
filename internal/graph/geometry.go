package graph

import (
	"log"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
)

// Geometry is the renderable form of a node path
type Geometry struct {
	Segments     [][]models.Coordinates
	LengthMeters float64
	// Gaps counts consecutive pairs with no edge, estimated as straight lines
	Gaps int
}

// PathGeometry translates a node path into edge geometries and total length.
// Missing edges degrade to a great-circle estimate with no geometry emitted.
func (g *Graph) PathGeometry(nodes []int64) Geometry {
	result := Geometry{Segments: [][]models.Coordinates{}}

	for i := 1; i < len(nodes); i++ {
		u, v := nodes[i-1], nodes[i]

		if edge, ok := g.EdgeBetween(u, v); ok {
			result.Segments = append(result.Segments, orientGeometry(edge, u, g))
			result.LengthMeters += edge.Length
			continue
		}

		result.Gaps++
		nu, okU := g.nodes[u]
		nv, okV := g.nodes[v]
		if !okU || !okV {
			log.Printf("[WARN] Path segment references unknown node: u=%d v=%d", u, v)
			continue
		}
		estimate := geo.Haversine(nu.Coords, nv.Coords)
		log.Printf("[WARN] Missing edge geometry, using straight line: u=%d v=%d meters=%.0f", u, v, estimate)
		result.LengthMeters += estimate
	}

	return result
}

// PathLength returns the summed length of a node path
func (g *Graph) PathLength(nodes []int64) float64 {
	return g.PathGeometry(nodes).LengthMeters
}

func orientGeometry(edge Edge, from int64, g *Graph) []models.Coordinates {
	line := edge.Geometry
	if len(line) < 2 {
		nu := g.nodes[edge.U].Coords
		nv := g.nodes[edge.V].Coords
		line = []models.Coordinates{nu, nv}
	}
	if edge.U == from {
		return line
	}
	reversed := make([]models.Coordinates, len(line))
	for i, c := range line {
		reversed[len(line)-1-i] = c
	}
	return reversed
}
