package graph

import (
	"errors"
	"log"
	"math"
	"sort"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
	"property-tour-router/internal/spatial"
)

var (
	// ErrEmptyGraph is returned when a lookup needs at least one node
	ErrEmptyGraph = errors.New("graph has no nodes")
	// ErrUnknownNode is returned for node ids not present in the node table
	ErrUnknownNode = errors.New("unknown node")
)

// Node is a street intersection
type Node struct {
	ID     int64
	Coords models.Coordinates
}

// Neighbor is one adjacency entry with the base edge length
type Neighbor struct {
	To     int64
	Length float64
}

// Edge is an undirected street segment
type Edge struct {
	U        int64
	V        int64
	Length   float64
	Geometry []models.Coordinates
}

// PairKey identifies an edge regardless of direction
type PairKey struct {
	A int64
	B int64
}

// Pair builds the unordered key for nodes u and v
func Pair(u, v int64) PairKey {
	if u > v {
		u, v = v, u
	}
	return PairKey{A: u, B: v}
}

// Graph is the read-only street network shared by every session once loaded
type Graph struct {
	nodes     map[int64]Node
	ids       []int64
	adjacency map[int64][]Neighbor
	edges     []Edge
	pairIndex map[PairKey]int
	risk      *RiskMap
	cost      CostModel
	index     *spatial.Index
	skipped   int
}

// NewGraph creates an empty graph with the default cost model
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[int64]Node),
		adjacency: make(map[int64][]Neighbor),
		pairIndex: make(map[PairKey]int),
		cost:      DefaultCostModel(),
	}
}

// AddNode inserts or replaces a node
func (g *Graph) AddNode(id int64, coords models.Coordinates) {
	if _, exists := g.nodes[id]; !exists {
		g.ids = append(g.ids, id)
		g.index = nil
	}
	g.nodes[id] = Node{ID: id, Coords: coords}
}

// AddEdge stores an undirected edge. Edges with a missing endpoint are ignored
// and false is returned. A non-positive length is recomputed from geometry.
func (g *Graph) AddEdge(u, v int64, length float64, geometry []models.Coordinates) bool {
	nu, okU := g.nodes[u]
	nv, okV := g.nodes[v]
	if !okU || !okV {
		g.skipped++
		return false
	}

	if length <= 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		if len(geometry) >= 2 {
			length = geo.LineLength(geometry)
		} else {
			length = geo.Haversine(nu.Coords, nv.Coords)
		}
	}

	g.edges = append(g.edges, Edge{U: u, V: v, Length: length, Geometry: geometry})
	key := Pair(u, v)
	// parallel edges: the pair index keeps the shortest, which is the one
	// path search relaxes
	if idx, exists := g.pairIndex[key]; !exists || length < g.edges[idx].Length {
		g.pairIndex[key] = len(g.edges) - 1
	}

	g.adjacency[u] = append(g.adjacency[u], Neighbor{To: v, Length: length})
	g.adjacency[v] = append(g.adjacency[v], Neighbor{To: u, Length: length})
	return true
}

// SetRisk attaches risk probabilities used by path cost. nil clears them.
func (g *Graph) SetRisk(r *RiskMap) {
	g.risk = r
}

// Risk returns the attached risk map, never nil
func (g *Graph) Risk() *RiskMap {
	if g.risk == nil {
		return NewRiskMap()
	}
	return g.risk
}

// SetCostModel replaces the risk penalty constants
func (g *Graph) SetCostModel(c CostModel) {
	g.cost = c
}

// CostModel returns the active cost model
func (g *Graph) CostModel() CostModel {
	return g.cost
}

// Node looks up a node by id
func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Neighbors returns the adjacency list of a node
func (g *Graph) Neighbors(id int64) []Neighbor {
	return g.adjacency[id]
}

// NodeIDs returns all node ids in ascending order
func (g *Graph) NodeIDs() []int64 {
	ids := make([]int64, len(g.ids))
	copy(ids, g.ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edges returns the edge table in load order
func (g *Graph) Edges() []Edge {
	return g.edges
}

// EdgeBetween finds the edge joining u and v in either direction
func (g *Graph) EdgeBetween(u, v int64) (Edge, bool) {
	if idx, ok := g.pairIndex[Pair(u, v)]; ok {
		return g.edges[idx], true
	}
	for _, e := range g.edges {
		if (e.U == u && e.V == v) || (e.U == v && e.V == u) {
			return e, true
		}
	}
	return Edge{}, false
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of stored edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// SkippedEdges returns how many edges were dropped for missing endpoints
func (g *Graph) SkippedEdges() int {
	return g.skipped
}

// LogSummary writes load statistics
func (g *Graph) LogSummary() {
	log.Printf("[GRAPH] Graph ready: nodes=%d edges=%d skipped_edges=%d risk_edges=%d risk_nodes=%d",
		len(g.nodes), len(g.edges), g.skipped, len(g.Risk().Edges), len(g.Risk().Nodes))
}
