package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
)

func TestResolvePage(t *testing.T) {
	assert.Equal(t, 1, ResolvePage(0))
	assert.Equal(t, 1, ResolvePage(-3))
	assert.Equal(t, 1, ResolvePage(1))
	assert.Equal(t, 42, ResolvePage(42))
}

func TestResolvePageSize_Defaults(t *testing.T) {
	assert.Equal(t, DefaultPageSize, ResolvePageSize(0))
	assert.Equal(t, DefaultPageSize, ResolvePageSize(-1))
}

func TestResolvePageSize_Clamps(t *testing.T) {
	assert.Equal(t, 1, ResolvePageSize(1))
	assert.Equal(t, 50, ResolvePageSize(50))
	assert.Equal(t, MaxPageSize, ResolvePageSize(MaxPageSize))
	assert.Equal(t, MaxPageSize, ResolvePageSize(101))
	assert.Equal(t, MaxPageSize, ResolvePageSize(100000))
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 20))
	assert.Equal(t, 20, Offset(2, 20))
	assert.Equal(t, 120, Offset(4, 40))
}

func TestResolveSort_Price(t *testing.T) {
	asc := ResolveSort(domain.SortPriceAsc, true, nil)
	require.Len(t, asc, 1)
	assert.Equal(t, "price", asc[0].Field)
	assert.Equal(t, "asc", asc[0].Order)

	desc := ResolveSort(domain.SortPriceDesc, false, nil)
	require.Len(t, desc, 1)
	assert.Equal(t, "price", desc[0].Field)
	assert.Equal(t, "desc", desc[0].Order)
}

func TestResolveSort_Newest(t *testing.T) {
	specs := ResolveSort(domain.SortNewest, true, nil)
	require.Len(t, specs, 1)
	assert.Equal(t, "created_at", specs[0].Field)
	assert.Equal(t, "desc", specs[0].Order)
}

func TestResolveSort_Distance(t *testing.T) {
	point := &domain.GeoPoint{Lat: 40.7, Lon: -74.0}

	specs := ResolveSort(domain.SortDistance, true, point)
	require.Len(t, specs, 1)
	assert.Equal(t, "location", specs[0].Field)
	assert.Equal(t, "asc", specs[0].Order)
	require.NotNil(t, specs[0].Geo)
	assert.Equal(t, *point, specs[0].Geo.Point)
	assert.Equal(t, "km", specs[0].Geo.Unit)
}

func TestResolveSort_DistanceWithoutPointFallsBack(t *testing.T) {
	specs := ResolveSort(domain.SortDistance, true, nil)
	require.Len(t, specs, 2)
	assert.Equal(t, "_score", specs[0].Field)

	browse := ResolveSort(domain.SortDistance, false, nil)
	require.Len(t, browse, 1)
	assert.Equal(t, "created_at", browse[0].Field)
}

func TestResolveSort_RelevanceWithQuery(t *testing.T) {
	specs := ResolveSort(domain.SortRelevance, true, nil)
	require.Len(t, specs, 2)
	assert.Equal(t, "_score", specs[0].Field)
	assert.Equal(t, "desc", specs[0].Order)
	assert.Equal(t, "stock_quantity", specs[1].Field)
	assert.Equal(t, "desc", specs[1].Order)
}

func TestResolveSort_RelevanceWithoutQueryIsNewest(t *testing.T) {
	specs := ResolveSort("", false, nil)
	require.Len(t, specs, 1)
	assert.Equal(t, "created_at", specs[0].Field)
	assert.Equal(t, "desc", specs[0].Order)
}

func TestResolveSort_UnrecognizedFallsBackSilently(t *testing.T) {
	specs := ResolveSort("popularity", true, nil)
	require.Len(t, specs, 2)
	assert.Equal(t, "_score", specs[0].Field)

	browse := ResolveSort("garbage", false, nil)
	require.Len(t, browse, 1)
	assert.Equal(t, "created_at", browse[0].Field)
}
