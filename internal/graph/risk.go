package graph

import "math"

// RiskMap holds threat probabilities for edges and nodes. Absent entries are 0.
type RiskMap struct {
	Edges map[PairKey]float64
	Nodes map[int64]float64
}

// NewRiskMap creates an empty risk map
func NewRiskMap() *RiskMap {
	return &RiskMap{
		Edges: make(map[PairKey]float64),
		Nodes: make(map[int64]float64),
	}
}

// SetEdge records the probability for the edge between u and v
func (r *RiskMap) SetEdge(u, v int64, p float64) {
	r.Edges[Pair(u, v)] = clampProbability(p)
}

// SetNode records the probability for a node
func (r *RiskMap) SetNode(id int64, p float64) {
	r.Nodes[id] = clampProbability(p)
}

// EdgeRisk looks up an edge probability in either direction
func (r *RiskMap) EdgeRisk(u, v int64) float64 {
	if r == nil {
		return 0
	}
	return r.Edges[Pair(u, v)]
}

// NodeRisk looks up a node probability
func (r *RiskMap) NodeRisk(id int64) float64 {
	if r == nil {
		return 0
	}
	return r.Nodes[id]
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// CostModel converts base length and risk into search cost
type CostModel struct {
	EdgeFactor  float64 `yaml:"edge_factor" json:"edge_factor"`
	NodePenalty float64 `yaml:"node_penalty" json:"node_penalty"`
}

// DefaultCostModel returns the standard risk penalty constants
func DefaultCostModel() CostModel {
	return CostModel{EdgeFactor: 2, NodePenalty: 50}
}

// Cost returns length*(1 + EdgeFactor*edgeRisk) + nodeRisk*NodePenalty
func (c CostModel) Cost(length, edgeRisk, nodeRisk float64) float64 {
	return length*(1+c.EdgeFactor*edgeRisk) + nodeRisk*c.NodePenalty
}
