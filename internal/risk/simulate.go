package risk

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"property-tour-router/internal/graph"
	"property-tour-router/internal/models"
)

// Severity labels an activated threat
type Severity string

const (
	SeverityHigh   Severity = "alta"
	SeverityMedium Severity = "media"
	SeverityLow    Severity = "baja"
)

// SeverityFor classifies a probability: above 0.3 is high, above 0.15 medium
func SeverityFor(p float64) Severity {
	switch {
	case p > 0.3:
		return SeverityHigh
	case p > 0.15:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// ActiveEdge is an edge whose threat occurred in a simulation run
type ActiveEdge struct {
	U           int64    `json:"u"`
	V           int64    `json:"v"`
	Probability float64  `json:"probability"`
	Severity    Severity `json:"severity"`
}

// ActiveNode is a node whose threat occurred in a simulation run
type ActiveNode struct {
	ID          int64    `json:"id"`
	Probability float64  `json:"probability"`
	Severity    Severity `json:"severity"`
}

// ActiveIncident is an incident that occurred in a simulation run
type ActiveIncident struct {
	ID          int                `json:"id"`
	Kind        string             `json:"type"`
	Description string             `json:"description"`
	Coords      models.Coordinates `json:"coordinates"`
	Probability float64            `json:"probability"`
	Severity    Severity           `json:"severity"`
}

// Detail records one draw
type Detail struct {
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	Probability float64 `json:"probability"`
	Threshold   float64 `json:"threshold"`
	RandomValue int     `json:"random_value"`
	Occurs      bool    `json:"occurs"`
}

// Statistics counts evaluated and activated elements
type Statistics struct {
	EdgesEvaluated     int `json:"total_edges_evaluated"`
	NodesEvaluated     int `json:"total_nodes_evaluated"`
	IncidentsEvaluated int `json:"total_incidents_evaluated"`
	EdgesActivated     int `json:"edges_activated"`
	NodesActivated     int `json:"nodes_activated"`
	IncidentsActivated int `json:"incidents_activated"`
}

// SimulationResult is one reproducible Monte Carlo run
type SimulationResult struct {
	Seed            int64            `json:"seed"`
	Timestamp       time.Time        `json:"timestamp"`
	ActiveEdges     []ActiveEdge     `json:"active_edges"`
	ActiveNodes     []ActiveNode     `json:"active_nodes"`
	ActiveIncidents []ActiveIncident `json:"active_incidents"`
	Statistics      Statistics       `json:"statistics"`
	Details         []Detail         `json:"details"`
}

// ActiveRiskMap keeps only the edges and nodes whose threats occurred
func (r *SimulationResult) ActiveRiskMap() *graph.RiskMap {
	rm := graph.NewRiskMap()
	for _, e := range r.ActiveEdges {
		rm.SetEdge(e.U, e.V, e.Probability)
	}
	for _, n := range r.ActiveNodes {
		rm.SetNode(n.ID, n.Probability)
	}
	return rm
}

// Occurs reports whether a draw in [0, 100] falls at or under p*100
func Occurs(p float64, draw int) bool {
	return float64(draw) <= p*100
}

// Simulate draws one integer in [0, 100] per edge, node and incident, in
// that order. A zero seed picks one at random; the seed used is returned so
// the run can be repeated.
func Simulate(rm *graph.RiskMap, incidents []Incident, seed int64) *SimulationResult {
	if seed == 0 {
		seed = time.Now().UnixNano()%100000 + 1
	}
	rng := rand.New(rand.NewSource(seed))

	result := &SimulationResult{
		Seed:            seed,
		Timestamp:       time.Now(),
		ActiveEdges:     []ActiveEdge{},
		ActiveNodes:     []ActiveNode{},
		ActiveIncidents: []ActiveIncident{},
		Details:         []Detail{},
	}

	draw := func(kind, id string, p float64) bool {
		v := rng.Intn(101)
		occurs := Occurs(p, v)
		result.Details = append(result.Details, Detail{
			Type:        kind,
			ID:          id,
			Probability: p,
			Threshold:   p * 100,
			RandomValue: v,
			Occurs:      occurs,
		})
		return occurs
	}

	if rm != nil {
		keys := make([]graph.PairKey, 0, len(rm.Edges))
		for k := range rm.Edges {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].A != keys[j].A {
				return keys[i].A < keys[j].A
			}
			return keys[i].B < keys[j].B
		})
		result.Statistics.EdgesEvaluated = len(keys)
		for _, k := range keys {
			p := rm.Edges[k]
			if draw("edge", fmt.Sprintf("%d-%d", k.A, k.B), p) {
				result.ActiveEdges = append(result.ActiveEdges, ActiveEdge{U: k.A, V: k.B, Probability: p, Severity: SeverityFor(p)})
				result.Statistics.EdgesActivated++
			}
		}

		ids := make([]int64, 0, len(rm.Nodes))
		for id := range rm.Nodes {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		result.Statistics.NodesEvaluated = len(ids)
		for _, id := range ids {
			p := rm.Nodes[id]
			if draw("node", fmt.Sprintf("%d", id), p) {
				result.ActiveNodes = append(result.ActiveNodes, ActiveNode{ID: id, Probability: p, Severity: SeverityFor(p)})
				result.Statistics.NodesActivated++
			}
		}
	}

	result.Statistics.IncidentsEvaluated = len(incidents)
	for _, inc := range incidents {
		if draw("incident", fmt.Sprintf("%d", inc.ID), inc.Probability) {
			result.ActiveIncidents = append(result.ActiveIncidents, ActiveIncident{
				ID:          inc.ID,
				Kind:        inc.Kind,
				Description: inc.Description,
				Coords:      inc.Coords,
				Probability: inc.Probability,
				Severity:    SeverityFor(inc.Probability),
			})
			result.Statistics.IncidentsActivated++
		}
	}

	s := result.Statistics
	log.Printf("[RISK] Simulation complete: seed=%d edges=%d/%d nodes=%d/%d incidents=%d/%d",
		seed, s.EdgesActivated, s.EdgesEvaluated, s.NodesActivated, s.NodesEvaluated,
		s.IncidentsActivated, s.IncidentsEvaluated)
	return result
}
