package listings

import (
	"github.com/samber/lo"

	"property-tour-router/internal/models"
	"property-tour-router/internal/spatial"
)

// DefaultProximityRadius is the filter radius in meters when none is given
const DefaultProximityRadius = 500.0

// FilterByProximity keeps properties that have at least one POI of every
// requested category within radius meters. No categories keeps everything;
// a category with no POIs excludes everything.
func FilterByProximity(props []models.Property, pois []models.PointOfInterest, categories []models.POICategory, radius float64) []models.Property {
	categories = lo.Uniq(categories)
	if len(categories) == 0 {
		return props
	}
	if radius <= 0 {
		radius = DefaultProximityRadius
	}

	indexes := make(map[models.POICategory]*spatial.Index, len(categories))
	for _, cat := range categories {
		points := lo.FilterMap(pois, func(p models.PointOfInterest, _ int) (models.Coordinates, bool) {
			return p.GetCoords(), p.Category == cat
		})
		indexes[cat] = spatial.New(points)
	}

	return lo.Filter(props, func(p models.Property, _ int) bool {
		return lo.EveryBy(categories, func(cat models.POICategory) bool {
			nearest := indexes[cat].Nearest(p.GetCoords(), 1)
			return len(nearest) > 0 && nearest[0].Distance <= radius
		})
	})
}

// GroupByCategory splits POIs by category
func GroupByCategory(pois []models.PointOfInterest) map[models.POICategory][]models.PointOfInterest {
	return lo.GroupBy(pois, func(p models.PointOfInterest) models.POICategory {
		return p.Category
	})
}
