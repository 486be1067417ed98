// Package spatial provides nearest-neighbour lookups over geographic points.
package spatial

import (
	"math"
	"sort"

	"github.com/kyroy/kdtree"

	"property-tour-router/internal/geo"
	"property-tour-router/internal/models"
)

// oversample widens kd-tree queries before haversine re-ranking, since the
// planar projection distorts distances slightly away from the reference latitude
const oversample = 4

// MaxLatSpread is the widest latitude range, in degrees, served by the kd-tree.
// Within it the equirectangular scale error stays under about 2% even at
// 60 degrees of latitude, which the oversampled shortlist absorbs. Wider sets
// are answered by linear scan.
const MaxLatSpread = 1.0

// Result is one neighbour with its haversine distance in meters
type Result struct {
	Index    int
	Distance float64
}

type point struct {
	x, y  float64
	index int
}

func (p *point) Dimensions() int { return 2 }

func (p *point) Dimension(i int) float64 {
	if i == 0 {
		return p.x
	}
	return p.y
}

// Index answers k-nearest queries over a fixed point set
type Index struct {
	points []models.Coordinates
	tree   *kdtree.KDTree
	cosLat float64
}

// New builds an index. Result indices refer to positions in points.
func New(points []models.Coordinates) *Index {
	idx := &Index{
		points: points,
		cosLat: 1,
	}
	if len(points) == 0 {
		return idx
	}

	sumLat := 0.0
	minLat, maxLat := points[0].Lat, points[0].Lat
	for _, p := range points {
		sumLat += p.Lat
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
	}
	idx.cosLat = math.Cos(sumLat / float64(len(points)) * math.Pi / 180)
	if maxLat-minLat > MaxLatSpread {
		return idx
	}

	kdPoints := make([]kdtree.Point, len(points))
	for i, p := range points {
		kdPoints[i] = idx.project(p, i)
	}
	idx.tree = kdtree.New(kdPoints)
	return idx
}

func (idx *Index) project(c models.Coordinates, i int) *point {
	return &point{x: c.Lng * idx.cosLat, y: c.Lat, index: i}
}

// Len returns the number of indexed points
func (idx *Index) Len() int {
	return len(idx.points)
}

// Nearest returns up to k points closest to c, nearest first.
// Equal distances are ordered by index.
func (idx *Index) Nearest(c models.Coordinates, k int) []Result {
	if k <= 0 || len(idx.points) == 0 {
		return nil
	}

	want := k * oversample
	if want < k+8 {
		want = k + 8
	}

	var candidates []Result
	if want >= len(idx.points) || idx.tree == nil {
		candidates = make([]Result, len(idx.points))
		for i, p := range idx.points {
			candidates[i] = Result{Index: i, Distance: geo.Haversine(c, p)}
		}
	} else {
		found := idx.tree.KNN(idx.project(c, -1), want)
		candidates = make([]Result, 0, len(found))
		for _, f := range found {
			p := f.(*point)
			candidates = append(candidates, Result{Index: p.index, Distance: geo.Haversine(c, idx.points[p.index])})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance == candidates[j].Distance {
			return candidates[i].Index < candidates[j].Index
		}
		return candidates[i].Distance < candidates[j].Distance
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Within returns every point no farther than radius meters from c
func (idx *Index) Within(c models.Coordinates, radius float64) []Result {
	var out []Result
	for i, p := range idx.points {
		if d := geo.Haversine(c, p); d <= radius {
			out = append(out, Result{Index: i, Distance: d})
		}
	}
	return out
}
