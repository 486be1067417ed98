package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"property-tour-router/internal/models"
)

// EarthRadiusMeters is the sphere radius used for every great-circle distance
const EarthRadiusMeters = 6371000.0

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Haversine returns the great-circle distance in meters between two coordinates
func Haversine(a, b models.Coordinates) float64 {
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	deltaPhi := toRadians(b.Lat - a.Lat)
	deltaLambda := toRadians(b.Lng - a.Lng)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// LineLength sums the haversine length of consecutive vertices
func LineLength(line []models.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1], line[i])
	}
	return total
}

// MercatorToWGS84 reprojects EPSG:3857 meters to latitude/longitude
func MercatorToWGS84(x, y float64) models.Coordinates {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return models.Coordinates{Lat: p.Lat(), Lng: p.Lon()}
}

// FromPoint converts an orb point (lon, lat) to coordinates
func FromPoint(p orb.Point) models.Coordinates {
	return models.Coordinates{Lat: p.Lat(), Lng: p.Lon()}
}

// ToPoint converts coordinates to an orb point (lon, lat)
func ToPoint(c models.Coordinates) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// FromLineString converts an orb line string into a coordinate sequence
func FromLineString(ls orb.LineString) []models.Coordinates {
	out := make([]models.Coordinates, len(ls))
	for i, p := range ls {
		out[i] = FromPoint(p)
	}
	return out
}

// mercatorRadius is the sphere radius behind EPSG:3857
const mercatorRadius = 6378137.0

// DistanceToLine returns the distance in meters from c to the closest point of
// a polyline. Segments are measured in Web Mercator around c's latitude, which
// holds for street-length segments.
func DistanceToLine(c models.Coordinates, line []models.Coordinates) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return Haversine(c, line[0])
	}

	p := project.WGS84.ToMercator(ToPoint(c))
	scale := math.Cos(toRadians(c.Lat)) * EarthRadiusMeters / mercatorRadius
	best := math.Inf(1)
	prev := project.WGS84.ToMercator(ToPoint(line[0]))
	for _, v := range line[1:] {
		next := project.WGS84.ToMercator(ToPoint(v))
		if d := planar.DistanceFromSegment(prev, next, p) * scale; d < best {
			best = d
		}
		prev = next
	}
	return best
}
