package testutil

import (
	"context"
	"math"

	"property-tour-router/internal/distance"
)

// PathCall tracks a call to the distance calculator
type PathCall struct {
	From int64
	To   int64
}

// MockCalculator is a distance.Calculator backed by a fixed pair table.
// Pairs missing from Distances are unreachable.
type MockCalculator struct {
	Distances map[[2]int64]float64
	Calls     []PathCall
}

func NewMockCalculator() *MockCalculator {
	return &MockCalculator{
		Distances: make(map[[2]int64]float64),
		Calls:     []PathCall{},
	}
}

// SetDistance sets a symmetric distance between two nodes
func (m *MockCalculator) SetDistance(a, b int64, meters float64) {
	m.Distances[[2]int64{a, b}] = meters
	m.Distances[[2]int64{b, a}] = meters
}

func (m *MockCalculator) PathDistance(ctx context.Context, from, to int64) (*distance.PathResult, bool) {
	m.Calls = append(m.Calls, PathCall{From: from, To: to})
	if from == to {
		return &distance.PathResult{Nodes: []int64{from}}, true
	}
	d, ok := m.Distances[[2]int64{from, to}]
	if !ok {
		return nil, false
	}
	return &distance.PathResult{DistanceMeters: d, Cost: d, Nodes: []int64{from, to}}, true
}

func (m *MockCalculator) Matrix(ctx context.Context, nodes []int64) ([][]float64, error) {
	matrix := make([][]float64, len(nodes))
	for i := range nodes {
		matrix[i] = make([]float64, len(nodes))
		for j := range nodes {
			if i == j {
				continue
			}
			if r, ok := m.PathDistance(ctx, nodes[i], nodes[j]); ok {
				matrix[i][j] = r.DistanceMeters
			} else {
				matrix[i][j] = math.Inf(1)
			}
		}
	}
	return matrix, nil
}

// ClearCache is a no-op for the mock
func (m *MockCalculator) ClearCache() {}

// ResetCalls clears the recorded calls
func (m *MockCalculator) ResetCalls() {
	m.Calls = []PathCall{}
}

// SequenceRNG returns Values in order, cycling when exhausted
type SequenceRNG struct {
	Values []float64
	pos    int
}

func (r *SequenceRNG) Float64() float64 {
	if len(r.Values) == 0 {
		return 0
	}
	v := r.Values[r.pos%len(r.Values)]
	r.pos++
	return v
}

// Intn returns a deterministic index derived from the next value
func (r *SequenceRNG) Intn(n int) int {
	i := int(r.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
