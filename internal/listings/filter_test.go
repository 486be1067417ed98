package listings

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"property-tour-router/internal/models"
)

func proximityFixture() ([]models.Property, []models.PointOfInterest) {
	props := []models.Property{
		{ID: "both", Lat: -33.4300, Lng: -70.6100},
		{ID: "metro-only", Lat: -33.4400, Lng: -70.6100},
		{ID: "none", Lat: -33.4600, Lng: -70.6500},
	}
	pois := []models.PointOfInterest{
		{Name: "Los Leones", Category: models.CategoryMetro, Lat: -33.4310, Lng: -70.6100},
		{Name: "Tobalaba", Category: models.CategoryMetro, Lat: -33.4410, Lng: -70.6100},
		{Name: "Clinica", Category: models.CategoryHealth, Lat: -33.4290, Lng: -70.6100},
	}
	return props, pois
}

func ids(props []models.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.ID
	}
	return out
}

func TestFilterByProximity_AndAcrossCategories(t *testing.T) {
	props, pois := proximityFixture()

	got := FilterByProximity(props, pois, []models.POICategory{models.CategoryMetro, models.CategoryHealth}, 500)

	assert.Equal(t, []string{"both"}, ids(got))
}

func TestFilterByProximity_SingleCategory(t *testing.T) {
	props, pois := proximityFixture()

	got := FilterByProximity(props, pois, []models.POICategory{models.CategoryMetro}, 500)

	assert.Equal(t, []string{"both", "metro-only"}, ids(got))
}

func TestFilterByProximity_NoCategoriesKeepsAll(t *testing.T) {
	props, pois := proximityFixture()

	got := FilterByProximity(props, pois, nil, 500)

	assert.Len(t, got, 3)
}

func TestFilterByProximity_CategoryWithoutPOIs(t *testing.T) {
	props, pois := proximityFixture()

	got := FilterByProximity(props, pois, []models.POICategory{models.CategoryPolice}, 500)

	assert.Empty(t, got)
}

func TestFilterByProximity_DefaultRadius(t *testing.T) {
	props, pois := proximityFixture()

	got := FilterByProximity(props, pois, []models.POICategory{models.CategoryHealth}, 0)

	// the clinic is about 1.1 km from metro-only, beyond 500 m
	assert.Equal(t, []string{"both"}, ids(got))
}

func TestGroupByCategory(t *testing.T) {
	_, pois := proximityFixture()

	groups := GroupByCategory(pois)

	assert.Len(t, groups[models.CategoryMetro], 2)
	assert.Len(t, groups[models.CategoryHealth], 1)
}
