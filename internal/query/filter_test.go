package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
)

func TestBuildFilters_Empty(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{})
	assert.Empty(t, filters)
}

func TestBuildFilters_InStock(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{InStock: true})
	require.Len(t, filters, 1)

	pred, ok := filters[0].(RangePredicate)
	require.True(t, ok)
	assert.Equal(t, "stock_quantity", pred.Field)
	require.NotNil(t, pred.GT)
	assert.Equal(t, 0.0, *pred.GT)
}

func TestBuildFilters_RepeatedCategoriesAreAllKept(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		Categories: []string{"electronics", "audio"},
	})
	require.Len(t, filters, 2)

	first, ok := filters[0].(TermPredicate)
	require.True(t, ok)
	assert.Equal(t, "category", first.Field)
	assert.Equal(t, "electronics", first.Value)

	second := filters[1].(TermPredicate)
	assert.Equal(t, "audio", second.Value)
}

func TestBuildFilters_TagsAndStatus(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		Tags:   []string{"wireless"},
		Status: "active",
	})
	require.Len(t, filters, 2)

	tag := filters[0].(TermPredicate)
	assert.Equal(t, "tags", tag.Field)
	assert.Equal(t, "wireless", tag.Value)

	status := filters[1].(TermPredicate)
	assert.Equal(t, "status", status.Field)
	assert.Equal(t, "active", status.Value)
}

func TestBuildFilters_PriceRange(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		MinPrice: "10.5",
		MaxPrice: "99.99",
	})
	require.Len(t, filters, 2)

	min := filters[0].(RangePredicate)
	assert.Equal(t, "price", min.Field)
	require.NotNil(t, min.GTE)
	assert.Equal(t, 10.5, *min.GTE)
	assert.Nil(t, min.LTE)

	max := filters[1].(RangePredicate)
	require.NotNil(t, max.LTE)
	assert.Equal(t, 99.99, *max.LTE)
}

func TestBuildFilters_MalformedPriceDroppedSilently(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		MinPrice: "abc",
		MaxPrice: "50",
	})
	require.Len(t, filters, 1)

	max := filters[0].(RangePredicate)
	require.NotNil(t, max.LTE)
	assert.Equal(t, 50.0, *max.LTE)
}

func TestBuildFilters_GeoRequiresBothCoordinates(t *testing.T) {
	assert.Empty(t, BuildFilters(&domain.SearchRequest{Lat: "40.7"}))
	assert.Empty(t, BuildFilters(&domain.SearchRequest{Lon: "-74.0"}))
	assert.Empty(t, BuildFilters(&domain.SearchRequest{Lat: "40.7", Lon: "not-a-number"}))
}

func TestBuildFilters_GeoWithDefaultDistance(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{Lat: "40.7", Lon: "-74.0"})
	require.Len(t, filters, 1)

	geo, ok := filters[0].(GeoDistancePredicate)
	require.True(t, ok)
	assert.Equal(t, "location", geo.Field)
	assert.Equal(t, DefaultGeoDistance, geo.Distance)
	assert.Equal(t, 40.7, geo.Point.Lat)
	assert.Equal(t, -74.0, geo.Point.Lon)
}

func TestBuildFilters_GeoWithExplicitDistance(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		Lat: "40.7", Lon: "-74.0", Distance: "10km",
	})
	require.Len(t, filters, 1)
	assert.Equal(t, "10km", filters[0].(GeoDistancePredicate).Distance)
}

func TestBuildFilters_AttributePairs(t *testing.T) {
	filters := BuildFilters(&domain.SearchRequest{
		Attributes: map[string][]string{
			"size":  {"M", "L"},
			"color": {"Black"},
		},
	})
	require.Len(t, filters, 3)

	// Keys are emitted in sorted order: color before size.
	color := filters[0].(NestedPairPredicate)
	assert.Equal(t, "attributes", color.Path)
	assert.Equal(t, "color", color.Name)
	assert.Equal(t, "Black", color.Value)

	assert.Equal(t, "M", filters[1].(NestedPairPredicate).Value)
	assert.Equal(t, "L", filters[2].(NestedPairPredicate).Value)
}

func TestParseGeoPoint(t *testing.T) {
	point, ok := ParseGeoPoint("51.5", "-0.12")
	require.True(t, ok)
	assert.Equal(t, 51.5, point.Lat)
	assert.Equal(t, -0.12, point.Lon)

	_, ok = ParseGeoPoint("", "")
	assert.False(t, ok)

	_, ok = ParseGeoPoint("x", "1")
	assert.False(t, ok)
}
