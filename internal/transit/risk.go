package transit

import (
	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
)

// Display thresholds for average leg risk
const (
	MediumRiskThreshold = 0.30
	HighRiskThreshold   = 0.60
)

// AnnotateRisk sets the mean edge risk and band of a transit leg.
// Walking legs and legs without a node path are left untouched.
func AnnotateRisk(g *graph.Graph, leg *models.RouteLeg) {
	if leg.Kind != models.LegTransit || len(leg.NodePath) < 2 {
		return
	}
	risk := g.Risk()
	total := 0.0
	for i := 1; i < len(leg.NodePath); i++ {
		total += risk.EdgeRisk(leg.NodePath[i-1], leg.NodePath[i])
	}
	leg.AverageRisk = total / float64(len(leg.NodePath)-1)
	leg.Risk = BandFor(leg.AverageRisk)
}

// BandFor classifies an average probability as low, medium or high
func BandFor(avg float64) models.RiskBand {
	switch {
	case avg >= HighRiskThreshold:
		return models.RiskHigh
	case avg >= MediumRiskThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
