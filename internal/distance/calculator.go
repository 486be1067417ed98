package distance

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"property-tour-router/internal/graph"
)

// PathResult is the plain length of the least-cost path between two nodes
type PathResult struct {
	DistanceMeters float64
	Cost           float64
	Nodes          []int64
}

// Calculator provides network distances between graph nodes
type Calculator interface {
	PathDistance(ctx context.Context, from, to int64) (*PathResult, bool)
	Matrix(ctx context.Context, nodes []int64) ([][]float64, error)
	ClearCache()
}

type graphCalculator struct {
	graph *graph.Graph
	cache *gocache.Cache
}

// NewGraphCalculator creates a calculator over g. Results are memoised per
// unordered node pair; ttl <= 0 keeps entries for the calculator's lifetime.
func NewGraphCalculator(g *graph.Graph, ttl time.Duration) Calculator {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &graphCalculator{
		graph: g,
		cache: gocache.New(expiration, cleanup),
	}
}

func pairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

type cachedPath struct {
	found  bool
	result PathResult
}

// PathDistance runs the shortest path search and measures the resulting
// geometry. ok is false when no path exists.
func (c *graphCalculator) PathDistance(ctx context.Context, from, to int64) (*PathResult, bool) {
	if from == to {
		if _, exists := c.graph.Node(from); !exists {
			return nil, false
		}
		return &PathResult{DistanceMeters: 0, Cost: 0, Nodes: []int64{from}}, true
	}

	key := pairKey(from, to)
	if cached, hit := c.cache.Get(key); hit {
		// Don't log every cache hit - too noisy
		return orient(cached.(cachedPath), from)
	}

	a, b := from, to
	if a > b {
		a, b = b, a
	}
	path, found := c.graph.ShortestPath(a, b)
	entry := cachedPath{found: found}
	if found {
		entry.result = PathResult{
			DistanceMeters: c.graph.PathLength(path.Nodes),
			Cost:           path.Cost,
			Nodes:          path.Nodes,
		}
	} else {
		log.Printf("[PATH] No path: from=%d to=%d", from, to)
	}
	c.cache.Set(key, entry, gocache.DefaultExpiration)

	return orient(entry, from)
}

func orient(entry cachedPath, from int64) (*PathResult, bool) {
	if !entry.found {
		return nil, false
	}
	result := entry.result
	if len(result.Nodes) > 0 && result.Nodes[0] != from {
		reversed := make([]int64, len(result.Nodes))
		for i, id := range result.Nodes {
			reversed[len(result.Nodes)-1-i] = id
		}
		result.Nodes = reversed
	}
	return &result, true
}

// Matrix returns pairwise path lengths. Diagonal is 0, unreachable pairs are +Inf.
func (c *graphCalculator) Matrix(ctx context.Context, nodes []int64) ([][]float64, error) {
	n := len(nodes)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	unreachable := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d := math.Inf(1)
			if result, ok := c.PathDistance(ctx, nodes[i], nodes[j]); ok {
				d = result.DistanceMeters
			} else {
				unreachable++
			}
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}

	log.Printf("[MATRIX] Distance matrix built: points=%d unreachable_pairs=%d cached=%d", n, unreachable, c.cache.ItemCount())
	return matrix, nil
}

func (c *graphCalculator) ClearCache() {
	c.cache.Flush()
}
