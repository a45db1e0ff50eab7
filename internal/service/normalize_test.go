package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

func TestNormalizeResult_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		from      int
		size      int
		wantPage  int
		wantPages int
	}{
		{name: "first page", total: 97, from: 0, size: 20, wantPage: 1, wantPages: 5},
		{name: "third page", total: 97, from: 40, size: 20, wantPage: 3, wantPages: 5},
		{name: "exact multiple", total: 100, from: 0, size: 20, wantPage: 1, wantPages: 5},
		{name: "single partial page", total: 7, from: 0, size: 20, wantPage: 1, wantPages: 1},
		{name: "empty result", total: 0, from: 0, size: 20, wantPage: 1, wantPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &query.Plan{From: tt.from, Size: tt.size}
			result := normalizeResult(&engine.QueryResponse{Total: tt.total}, plan)

			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, tt.size, result.Size)
			assert.Equal(t, tt.wantPages, result.Pages)
			assert.Equal(t, tt.total, result.Total)
		})
	}
}

func TestNormalizeResult_EmptyResponseHasNonNilCollections(t *testing.T) {
	plan := &query.Plan{Size: 20}
	result := normalizeResult(&engine.QueryResponse{}, plan)

	assert.NotNil(t, result.Hits)
	assert.NotNil(t, result.Suggestions)
	assert.NotNil(t, result.Facets.Categories)
	assert.NotNil(t, result.Facets.Statuses)
	assert.NotNil(t, result.Facets.PriceRanges)
	assert.Empty(t, result.Hits)
	assert.Empty(t, result.Suggestions)
}

func TestNormalizeResult_MissingHighlightIsEmptyMapping(t *testing.T) {
	resp := &engine.QueryResponse{
		Total: 1,
		Hits:  []engine.Hit{{Product: domain.Product{SKU: "SKU-1"}}},
	}

	result := normalizeResult(resp, &query.Plan{Size: 20})

	require.Len(t, result.Hits, 1)
	require.NotNil(t, result.Hits[0].Highlight)
	assert.Empty(t, result.Hits[0].Highlight)

	data, err := json.Marshal(result.Hits[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"highlight":{}`)
}

func TestNormalizeResult_PreservesOrder(t *testing.T) {
	score := 2.5
	resp := &engine.QueryResponse{
		TookMs: 12,
		Total:  2,
		Hits: []engine.Hit{
			{
				Product:   domain.Product{SKU: "FIRST"},
				Score:     &score,
				Highlight: map[string][]string{"name": {"<em>First</em>"}},
			},
			{Product: domain.Product{SKU: "SECOND"}},
		},
		Buckets: map[string][]engine.Bucket{
			query.FacetCategories: {
				{Key: "audio", Count: 12},
				{Key: "lighting", Count: 3},
			},
			query.FacetPriceRanges: {
				{Key: "Under $50", Count: 4},
				{Key: "$50 - $100", Count: 11},
			},
		},
		Stats: map[string]engine.Stats{
			query.FacetPriceStats: {Count: 15, Min: 9.99, Max: 499, Avg: 88.2, Sum: 1323},
		},
		Suggestions: []engine.SuggestionOption{
			{Text: "wireless headphones", Score: 0.9},
			{Text: "wired headphones", Score: 0.4},
		},
	}

	result := normalizeResult(resp, &query.Plan{Size: 20})

	require.Len(t, result.Hits, 2)
	assert.Equal(t, "FIRST", result.Hits[0].Product.SKU)
	require.NotNil(t, result.Hits[0].Score)
	assert.Equal(t, 2.5, *result.Hits[0].Score)
	assert.Equal(t, []string{"<em>First</em>"}, result.Hits[0].Highlight["name"])
	assert.Nil(t, result.Hits[1].Score)

	require.Len(t, result.Facets.Categories, 2)
	assert.Equal(t, "audio", result.Facets.Categories[0].Key)
	assert.Equal(t, int64(12), result.Facets.Categories[0].Count)
	assert.Equal(t, "lighting", result.Facets.Categories[1].Key)

	require.Len(t, result.Facets.PriceRanges, 2)
	assert.Equal(t, "Under $50", result.Facets.PriceRanges[0].Key)

	assert.Equal(t, int64(15), result.Facets.PriceStats.Count)
	assert.Equal(t, 9.99, result.Facets.PriceStats.Min)
	assert.Equal(t, 1323.0, result.Facets.PriceStats.Sum)

	assert.Equal(t, []string{"wireless headphones", "wired headphones"}, result.Suggestions)
	assert.Equal(t, int64(12), result.TookMs)
}
