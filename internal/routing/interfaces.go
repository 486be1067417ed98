package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Strategy names accepted by ByName
const (
	StrategyTwoOpt    = "two-opt"
	StrategyACO       = "aco"
	StrategyInsertion = "insertion"
)

var (
	// ErrInvalidMatrix is returned for non-square distance matrices
	ErrInvalidMatrix = errors.New("distance matrix must be square")
	// ErrUnknownStrategy is returned by ByName for unsupported names
	ErrUnknownStrategy = errors.New("unknown optimization strategy")
)

// Optimizer orders stops given a distance matrix whose index 0 is the fixed
// start. The returned order begins with 0 and does not return to it.
type Optimizer interface {
	Name() string
	Order(ctx context.Context, matrix [][]float64) ([]int, error)
}

// RNG is the randomness source used by stochastic optimizers
type RNG interface {
	Float64() float64
	Intn(n int) int
}

// ByName selects an optimizer. An empty name selects nearest-neighbor + 2-opt.
func ByName(name string, params ACOParams, rng RNG) (Optimizer, error) {
	switch name {
	case "", StrategyTwoOpt:
		return NewNearestNeighborTwoOpt(), nil
	case StrategyACO:
		return NewAntColony(params, rng), nil
	case StrategyInsertion:
		return NewCheapestInsertion(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
}

// TourLength returns the open-path length of order over matrix
func TourLength(matrix [][]float64, order []int) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		total += matrix[order[i-1]][order[i]]
	}
	return total
}

// ValidTour reports whether order is a permutation of 0..n-1 starting at 0
func ValidTour(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	if n == 0 {
		return true
	}
	if order[0] != 0 {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

func validateMatrix(matrix [][]float64) error {
	for _, row := range matrix {
		if len(row) != len(matrix) {
			return ErrInvalidMatrix
		}
	}
	return nil
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func usable(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0
}
