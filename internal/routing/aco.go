package routing

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

const (
	acoEpsilon  = 1e-9
	acoSentinel = 1e12
)

// ACOParams configures the ant colony optimizer. Zero values take defaults.
type ACOParams struct {
	Ants       int     `yaml:"ants" json:"ants"`
	Iterations int     `yaml:"iterations" json:"iterations"`
	Alpha      float64 `yaml:"alpha" json:"alpha"`
	Beta       float64 `yaml:"beta" json:"beta"`
	Rho        float64 `yaml:"rho" json:"rho"`
	Q          float64 `yaml:"q" json:"q"`
}

// DefaultACOParams returns the standard colony settings. Ants = 0 means max(10, N).
func DefaultACOParams() ACOParams {
	return ACOParams{
		Ants:       0,
		Iterations: 120,
		Alpha:      1,
		Beta:       3,
		Rho:        0.12,
		Q:          1,
	}
}

func (p ACOParams) withDefaults(n int) ACOParams {
	d := DefaultACOParams()
	if p.Ants <= 0 {
		p.Ants = n
		if p.Ants < 10 {
			p.Ants = 10
		}
	}
	if p.Iterations <= 0 {
		p.Iterations = d.Iterations
	}
	if p.Alpha == 0 {
		p.Alpha = d.Alpha
	}
	if p.Beta == 0 {
		p.Beta = d.Beta
	}
	if p.Rho <= 0 || p.Rho >= 1 {
		p.Rho = d.Rho
	}
	if p.Q <= 0 {
		p.Q = d.Q
	}
	return p
}

type antColony struct {
	params ACOParams
	rng    RNG
}

// NewAntColony creates an ant colony optimizer. A nil rng uses a time-seeded source.
func NewAntColony(params ACOParams, rng RNG) Optimizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &antColony{params: params, rng: rng}
}

func (o *antColony) Name() string { return StrategyACO }

func (o *antColony) Order(ctx context.Context, matrix [][]float64) ([]int, error) {
	if err := validateMatrix(matrix); err != nil {
		return nil, err
	}
	n := len(matrix)
	if n <= 2 {
		return identity(n), nil
	}
	p := o.params.withDefaults(n)

	dist := make([][]float64, n)
	tau := make([][]float64, n)
	eta := make([][]float64, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]float64, n)
		tau[i] = make([]float64, n)
		eta[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d := matrix[i][j]
			if !usable(d) {
				d = acoSentinel
			}
			dist[i][j] = d
			tau[i][j] = 1.0
			eta[i][j] = 1.0 / (d + acoEpsilon)
		}
	}

	var bestTour []int
	bestLength := math.Inf(1)

	tours := make([][]int, p.Ants)
	lengths := make([]float64, p.Ants)
	for iter := 0; iter < p.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for a := 0; a < p.Ants; a++ {
			tours[a] = o.constructTour(n, tau, eta, p)
			lengths[a] = TourLength(dist, tours[a])
			if lengths[a] < bestLength {
				bestLength = lengths[a]
				bestTour = append([]int(nil), tours[a]...)
			}
		}

		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				tau[i][j] *= 1 - p.Rho
			}
		}
		for a := 0; a < p.Ants; a++ {
			length := lengths[a]
			if length <= 0 {
				length = acoEpsilon
			}
			deposit := p.Q / length
			for k := 1; k < len(tours[a]); k++ {
				from, to := tours[a][k-1], tours[a][k]
				tau[from][to] += deposit
				tau[to][from] += deposit
			}
		}
	}

	log.Printf("[ACO] Colony finished: stops=%d ants=%d iterations=%d best=%.0f", n-1, p.Ants, p.Iterations, TourLength(matrix, bestTour))
	return bestTour, nil
}

func (o *antColony) constructTour(n int, tau, eta [][]float64, p ACOParams) []int {
	tour := make([]int, 1, n)
	visited := make([]bool, n)
	visited[0] = true

	candidates := make([]int, 0, n)
	weights := make([]float64, 0, n)
	for len(tour) < n {
		last := tour[len(tour)-1]
		candidates = candidates[:0]
		weights = weights[:0]
		sum := 0.0
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			w := math.Pow(tau[last][j], p.Alpha) * math.Pow(eta[last][j], p.Beta)
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				w = 0
			}
			candidates = append(candidates, j)
			weights = append(weights, w)
			sum += w
		}

		next := candidates[len(candidates)-1]
		if sum <= 0 || math.IsInf(sum, 0) {
			next = candidates[o.rng.Intn(len(candidates))]
		} else {
			r := o.rng.Float64() * sum
			acc := 0.0
			for k, w := range weights {
				acc += w
				if r < acc {
					next = candidates[k]
					break
				}
			}
		}

		tour = append(tour, next)
		visited[next] = true
	}
	return tour
}
