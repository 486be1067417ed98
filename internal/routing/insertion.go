package routing

import (
	"context"
	"log"
	"math"
)

type cheapestInsertion struct{}

// NewCheapestInsertion creates an optimizer that grows the tour by inserting
// the stop that adds the least distance, then applies 2-opt
func NewCheapestInsertion() Optimizer {
	return &cheapestInsertion{}
}

func (o *cheapestInsertion) Name() string { return StrategyInsertion }

func (o *cheapestInsertion) Order(ctx context.Context, matrix [][]float64) ([]int, error) {
	if err := validateMatrix(matrix); err != nil {
		return nil, err
	}
	n := len(matrix)
	if n <= 2 {
		return identity(n), nil
	}

	tour := []int{0}
	unassigned := make(map[int]bool, n-1)
	for i := 1; i < n; i++ {
		unassigned[i] = true
	}

	for len(unassigned) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bestCost := math.Inf(1)
		bestStop, bestPosition := -1, -1
		for stop := 1; stop < n; stop++ {
			if !unassigned[stop] {
				continue
			}
			for pos := 1; pos <= len(tour); pos++ {
				cost := insertionCost(matrix, tour, stop, pos)
				if bestStop < 0 || cost < bestCost {
					bestCost = cost
					bestStop = stop
					bestPosition = pos
				}
			}
		}

		tour = insertAt(tour, bestStop, bestPosition)
		delete(unassigned, bestStop)
	}

	initial := TourLength(matrix, tour)
	tour = TwoOpt(matrix, tour)
	log.Printf("[OPTIMIZE] Cheapest insertion + 2-opt: stops=%d initial=%.0f final=%.0f", n-1, initial, TourLength(matrix, tour))
	return tour, nil
}

// insertionCost is dist(prev, p) + dist(p, next) - dist(prev, next); appending
// at the end of the open path costs only dist(prev, p)
func insertionCost(matrix [][]float64, tour []int, stop, pos int) float64 {
	prev := tour[pos-1]
	if pos == len(tour) {
		return matrix[prev][stop]
	}
	next := tour[pos]
	return matrix[prev][stop] + matrix[stop][next] - matrix[prev][next]
}

func insertAt(tour []int, stop, pos int) []int {
	tour = append(tour, 0)
	copy(tour[pos+1:], tour[pos:])
	tour[pos] = stop
	return tour
}
