package routing

import (
	"context"
	"log"
	"math"
)

type nearestNeighborTwoOpt struct{}

// NewNearestNeighborTwoOpt creates the nearest-neighbor construction plus
// open-path 2-opt optimizer
func NewNearestNeighborTwoOpt() Optimizer {
	return &nearestNeighborTwoOpt{}
}

func (o *nearestNeighborTwoOpt) Name() string { return StrategyTwoOpt }

func (o *nearestNeighborTwoOpt) Order(ctx context.Context, matrix [][]float64) ([]int, error) {
	if err := validateMatrix(matrix); err != nil {
		return nil, err
	}
	n := len(matrix)
	if n <= 2 {
		return identity(n), nil
	}

	order := NearestNeighbor(matrix)
	initial := TourLength(matrix, order)
	order = TwoOpt(matrix, order)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Printf("[OPTIMIZE] Nearest-neighbor + 2-opt: stops=%d initial=%.0f final=%.0f", n-1, initial, TourLength(matrix, order))
	return order, nil
}

// NearestNeighbor builds a tour from index 0 by repeatedly appending the
// nearest unvisited index. Unreachable candidates are taken last, lowest index first.
func NearestNeighbor(matrix [][]float64) []int {
	n := len(matrix)
	if n == 0 {
		return []int{}
	}

	order := make([]int, 0, n)
	visited := make([]bool, n)
	order = append(order, 0)
	visited[0] = true

	current := 0
	for len(order) < n {
		nearest := -1
		minDistance := math.Inf(1)
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			d := matrix[current][j]
			if nearest < 0 || d < minDistance {
				minDistance = d
				nearest = j
			}
		}
		order = append(order, nearest)
		visited[nearest] = true
		current = nearest
	}

	return order
}

// TwoOpt improves an open-path tour by reversing segments. The first
// improving reversal is applied and the scan restarts from the beginning.
// Position 0 stays fixed and no return edge is considered.
func TwoOpt(matrix [][]float64, order []int) []int {
	stops := make([]int, len(order))
	copy(stops, order)
	if len(stops) < 3 {
		return stops
	}

	last := len(stops) - 1
	improved := true
	for improved {
		improved = false
	scan:
		for i := 1; i < last; i++ {
			for j := i + 1; j <= last; j++ {
				// Current: stops[i-1] -> stops[i] and stops[j] -> stops[j+1]
				// Reversed: stops[i-1] -> stops[j] and stops[i] -> stops[j+1]
				currentDist := matrix[stops[i-1]][stops[i]]
				newDist := matrix[stops[i-1]][stops[j]]
				if j < last {
					currentDist += matrix[stops[j]][stops[j+1]]
					newDist += matrix[stops[i]][stops[j+1]]
				}

				if newDist < currentDist {
					reverse(stops, i, j)
					improved = true
					break scan
				}
			}
		}
	}

	return stops
}

func reverse(stops []int, i, j int) {
	for left, right := i, j; left < right; left, right = left+1, right-1 {
		stops[left], stops[right] = stops[right], stops[left]
	}
}
