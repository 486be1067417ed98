package risk

import (
	"log"
	"math"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
	"property-tour-router/internal/spatial"
)

// PropagationParams bounds incident influence in meters
type PropagationParams struct {
	Radius float64 `yaml:"radius_m" json:"radius_m"`
	Sigma  float64 `yaml:"sigma_m" json:"sigma_m"`
}

// DefaultPropagationParams returns a 1 km search radius and 200 m decay
func DefaultPropagationParams() PropagationParams {
	return PropagationParams{Radius: 1000, Sigma: 200}
}

// GaussianWeight decays p with distance d. At or below zero distance the
// full probability applies.
func GaussianWeight(p, d, sigma float64) float64 {
	if d <= 0 {
		return p
	}
	return p * math.Exp(-(d*d)/(2*sigma*sigma))
}

// Propagate spreads incident probabilities onto the edges and nodes of g.
// Contributions combine as independent events: 1 - prod(1 - w).
func Propagate(g *graph.Graph, incidents []Incident, params PropagationParams) *graph.RiskMap {
	if params.Radius <= 0 {
		params.Radius = DefaultPropagationParams().Radius
	}
	if params.Sigma <= 0 {
		params.Sigma = DefaultPropagationParams().Sigma
	}

	rm := graph.NewRiskMap()
	if len(incidents) == 0 {
		return rm
	}

	// a street stored in both directions is one street: each incident
	// contributes once per pair, from the closest of its edges
	var pairs []graph.PairKey
	lines := make(map[graph.PairKey][][]models.Coordinates)
	for _, e := range g.Edges() {
		key := graph.Pair(e.U, e.V)
		if _, ok := lines[key]; !ok {
			pairs = append(pairs, key)
		}
		lines[key] = append(lines[key], edgeLine(g, e))
	}

	survive := make(map[graph.PairKey]float64)
	for _, key := range pairs {
		for _, inc := range incidents {
			d := math.Inf(1)
			for _, line := range lines[key] {
				d = math.Min(d, geo.DistanceToLine(inc.Coords, line))
			}
			if d > params.Radius {
				continue
			}
			if w := GaussianWeight(inc.Probability, d, params.Sigma); w > 0 {
				if _, ok := survive[key]; !ok {
					survive[key] = 1
				}
				survive[key] *= 1 - w
			}
		}
	}
	for key, s := range survive {
		rm.SetEdge(key.A, key.B, 1-s)
	}

	ids := g.NodeIDs()
	points := make([]models.Coordinates, len(ids))
	for i, id := range ids {
		n, _ := g.Node(id)
		points[i] = n.Coords
	}
	index := spatial.New(points)
	nodeSurvive := make(map[int64]float64)
	for _, inc := range incidents {
		for _, hit := range index.Within(inc.Coords, params.Radius) {
			if w := GaussianWeight(inc.Probability, hit.Distance, params.Sigma); w > 0 {
				id := ids[hit.Index]
				if _, ok := nodeSurvive[id]; !ok {
					nodeSurvive[id] = 1
				}
				nodeSurvive[id] *= 1 - w
			}
		}
	}
	for id, s := range nodeSurvive {
		rm.SetNode(id, 1-s)
	}

	log.Printf("[RISK] Propagated incidents: incidents=%d edges_affected=%d nodes_affected=%d",
		len(incidents), len(rm.Edges), len(rm.Nodes))
	return rm
}

// edgeLine falls back to the endpoint coordinates when geometry is missing
func edgeLine(g *graph.Graph, e graph.Edge) []models.Coordinates {
	if len(e.Geometry) > 0 {
		return e.Geometry
	}
	var line []models.Coordinates
	if n, ok := g.Node(e.U); ok {
		line = append(line, n.Coords)
	}
	if n, ok := g.Node(e.V); ok {
		line = append(line, n.Coords)
	}
	return line
}
