package risk

import (
	"math"

	"property-tour-router/internal/graph"
)

// HighRiskSegment is the edge probability above which a segment counts as high risk
const HighRiskSegment = 0.25

// RouteSummary aggregates the risk along a node path
type RouteSummary struct {
	TotalRisk        float64 `json:"total_risk"`
	AvgEdgeRisk      float64 `json:"avg_edge_risk"`
	AvgNodeRisk      float64 `json:"avg_node_risk"`
	HighRiskSegments int     `json:"high_risk_segments"`
	TotalSegments    int     `json:"total_segments"`
	RiskPercentage   float64 `json:"risk_percentage"`
}

// RouteRisk weighs mean edge risk at 0.7 and mean visited-node risk at 0.3.
// Each node counts once even when the path revisits it.
func RouteRisk(rm *graph.RiskMap, nodes []int64) RouteSummary {
	var summary RouteSummary
	if len(nodes) < 2 {
		return summary
	}

	edgeTotal := 0.0
	nodeTotal := 0.0
	visited := make(map[int64]struct{}, len(nodes))
	visit := func(id int64) {
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}
		nodeTotal += rm.NodeRisk(id)
	}

	for i := 1; i < len(nodes); i++ {
		u, v := nodes[i-1], nodes[i]
		p := rm.EdgeRisk(u, v)
		edgeTotal += p
		if p > HighRiskSegment {
			summary.HighRiskSegments++
		}
		visit(u)
		visit(v)
	}

	summary.TotalSegments = len(nodes) - 1
	avgEdge := edgeTotal / float64(summary.TotalSegments)
	avgNode := nodeTotal / float64(len(visited))
	total := avgEdge*0.7 + avgNode*0.3

	summary.AvgEdgeRisk = round(avgEdge, 4)
	summary.AvgNodeRisk = round(avgNode, 4)
	summary.TotalRisk = round(total, 4)
	summary.RiskPercentage = round(total*100, 2)
	return summary
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
