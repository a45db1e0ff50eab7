package elasticsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/query"
)

func TestBuildSearchBody_HybridQuery(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{Query: "wireless headphones"}, query.DefaultOptions())

	body := buildSearchBody(plan)

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	should, ok := boolQuery["should"].([]any)
	require.True(t, ok, "hybrid query should place ranked clauses in should")
	require.Len(t, should, 2)

	multiMatch := should[0].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "wireless headphones", multiMatch["query"])
	assert.Equal(t, []string{"name^3", "description", "tags^2"}, multiMatch["fields"])
	assert.Equal(t, "best_fields", multiMatch["type"])
	assert.Equal(t, "AUTO", multiMatch["fuzziness"])

	knn := should[1].(map[string]any)["knn"].(map[string]any)
	assert.Equal(t, "product_embedding", knn["field"])
	assert.Equal(t, 20, knn["k"])
	assert.Equal(t, 100, knn["num_candidates"])

	embedding := knn["query_vector_builder"].(map[string]any)["text_embedding"].(map[string]any)
	assert.Equal(t, "product-embedding-model", embedding["model_id"])
	assert.Equal(t, "wireless headphones", embedding["model_text"])

	rrf := body["rank"].(map[string]any)["rrf"].(map[string]any)
	assert.Equal(t, 100, rrf["window_size"])
	assert.Equal(t, 60, rrf["rank_constant"])
}

func TestBuildSearchBody_HybridQueryOmitsSort(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{Query: "wireless headphones"}, query.DefaultOptions())

	body := buildSearchBody(plan)

	_, hasRank := body["rank"]
	require.True(t, hasRank)

	_, hasSort := body["sort"]
	assert.False(t, hasSort, "rank fusion governs ordering and cannot be combined with sort")
}

func TestBuildSearchBody_ExplicitSortWinsOverFusion(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{
		Query:  "wireless",
		SortBy: domain.SortPriceAsc,
	}, query.DefaultOptions())

	body := buildSearchBody(plan)

	_, hasRank := body["rank"]
	assert.False(t, hasRank)

	sorts := body["sort"].([]any)
	require.Len(t, sorts, 1)
	assert.Equal(t, "asc", sorts[0].(map[string]any)["price"])
}

func TestBuildSearchBody_KeywordOnlyUsesMust(t *testing.T) {
	opts := query.DefaultOptions()
	opts.VectorField = ""
	plan := query.Assemble(&domain.SearchRequest{Query: "laptop"}, opts)

	body := buildSearchBody(plan)

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must, ok := boolQuery["must"].([]any)
	require.True(t, ok)
	require.Len(t, must, 1)
	assert.Contains(t, must[0].(map[string]any), "multi_match")

	_, hasRank := body["rank"]
	assert.False(t, hasRank)
}

func TestBuildSearchBody_BrowseModeMatchAll(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{}, query.DefaultOptions())

	body := buildSearchBody(plan)

	boolQuery := body["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	assert.Contains(t, must[0].(map[string]any), "match_all")

	_, hasSuggest := body["suggest"]
	assert.False(t, hasSuggest, "browse mode carries no spelling suggester")
}

func TestBuildSearchBody_SuggestSection(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{Query: "wireles"}, query.DefaultOptions())

	body := buildSearchBody(plan)

	suggest := body["suggest"].(map[string]any)[suggestContextName].(map[string]any)
	assert.Equal(t, "wireles", suggest["text"])

	phrase := suggest["phrase"].(map[string]any)
	assert.Equal(t, "name", phrase["field"])
	assert.Equal(t, 3, phrase["size"])
	assert.Equal(t, 3, phrase["gram_size"])

	generators := phrase["direct_generator"].([]any)
	require.Len(t, generators, 1)
	assert.Equal(t, "popular", generators[0].(map[string]any)["suggest_mode"])
}

func TestBuildSearchBody_SourceExcludesVector(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{}, query.DefaultOptions())

	body := buildSearchBody(plan)

	source := body["_source"].(map[string]any)
	assert.Equal(t, []string{"product_embedding"}, source["excludes"])
}

func TestBuildSearchBody_PaginationAndTotals(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{Page: 2, Size: 10}, query.DefaultOptions())

	body := buildSearchBody(plan)
	assert.Equal(t, 10, body["from"])
	assert.Equal(t, 10, body["size"])
	assert.Equal(t, true, body["track_total_hits"])
}

func TestBuildFilterDSL_Term(t *testing.T) {
	filters := buildFilterDSL([]query.Predicate{
		query.TermPredicate{Field: "category", Value: "audio"},
	})
	require.Len(t, filters, 1)

	term := filters[0].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, "audio", term["category"])
}

func TestBuildFilterDSL_Range(t *testing.T) {
	gte, lte := 10.0, 50.0
	filters := buildFilterDSL([]query.Predicate{
		query.RangePredicate{Field: "price", GTE: &gte, LTE: &lte},
	})
	require.Len(t, filters, 1)

	bounds := filters[0].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, 10.0, bounds["gte"])
	assert.Equal(t, 50.0, bounds["lte"])
	_, hasGT := bounds["gt"]
	assert.False(t, hasGT)
}

func TestBuildFilterDSL_GeoDistance(t *testing.T) {
	filters := buildFilterDSL([]query.Predicate{
		query.GeoDistancePredicate{
			Field:    "location",
			Point:    domain.GeoPoint{Lat: 40.7, Lon: -74.0},
			Distance: "25km",
		},
	})
	require.Len(t, filters, 1)

	geo := filters[0].(map[string]any)["geo_distance"].(map[string]any)
	assert.Equal(t, "25km", geo["distance"])

	point := geo["location"].(map[string]any)
	assert.Equal(t, 40.7, point["lat"])
	assert.Equal(t, -74.0, point["lon"])
}

func TestBuildFilterDSL_NestedAttributePair(t *testing.T) {
	filters := buildFilterDSL([]query.Predicate{
		query.NestedPairPredicate{Path: "attributes", Name: "color", Value: "Black"},
	})
	require.Len(t, filters, 1)

	nested := filters[0].(map[string]any)["nested"].(map[string]any)
	assert.Equal(t, "attributes", nested["path"])

	must := nested["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	assert.Equal(t, "color", must[0].(map[string]any)["term"].(map[string]any)["attributes.name"])
	assert.Equal(t, "Black", must[1].(map[string]any)["term"].(map[string]any)["attributes.value"])
}

func TestBuildSortDSL_GeoDistance(t *testing.T) {
	sorts := buildSortDSL([]query.SortSpec{{
		Field: "location",
		Order: "asc",
		Geo:   &query.GeoSort{Point: domain.GeoPoint{Lat: 51.5, Lon: -0.12}, Unit: "km"},
	}})
	require.Len(t, sorts, 1)

	geoSort := sorts[0].(map[string]any)["_geo_distance"].(map[string]any)
	assert.Equal(t, "asc", geoSort["order"])
	assert.Equal(t, "km", geoSort["unit"])
	assert.Equal(t, 51.5, geoSort["location"].(map[string]any)["lat"])
}

func TestBuildSortDSL_Plain(t *testing.T) {
	sorts := buildSortDSL([]query.SortSpec{
		{Field: "_score", Order: "desc"},
		{Field: "price", Order: "asc"},
	})
	require.Len(t, sorts, 2)
	assert.Equal(t, "desc", sorts[0].(map[string]any)["_score"])
	assert.Equal(t, "asc", sorts[1].(map[string]any)["price"])
}

func TestBuildAggsDSL(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{}, query.DefaultOptions())

	aggs := buildAggsDSL(plan.Facets)
	require.Len(t, aggs, 4)

	categories := aggs[query.FacetCategories].(map[string]any)["terms"].(map[string]any)
	assert.Equal(t, "category", categories["field"])
	assert.Equal(t, 50, categories["size"])

	priceRanges := aggs[query.FacetPriceRanges].(map[string]any)["range"].(map[string]any)
	ranges := priceRanges["ranges"].([]any)
	require.Len(t, ranges, 5)
	assert.Equal(t, "Under $50", ranges[0].(map[string]any)["key"])
	assert.Equal(t, 50.0, ranges[0].(map[string]any)["to"])

	stats := aggs[query.FacetPriceStats].(map[string]any)["stats"].(map[string]any)
	assert.Equal(t, "price", stats["field"])
}

func TestBuildSearchBody_MarshalsToJSON(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{
		Query:      "desk lamp",
		Categories: []string{"lighting"},
		MinPrice:   "15",
		InStock:    true,
	}, query.DefaultOptions())

	data, err := json.Marshal(buildSearchBody(plan))
	require.NoError(t, err)
	assert.Contains(t, string(data), "multi_match")
	assert.NotContains(t, string(data), "geo_distance")
}

func TestDecodeAggregations(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{}, query.DefaultOptions())

	raw := map[string]json.RawMessage{
		"categories": json.RawMessage(`{
			"buckets": [
				{"key": "audio", "doc_count": 12},
				{"key": "video", "doc_count": 3}
			]
		}`),
		"statuses": json.RawMessage(`{"buckets": []}`),
		"price_ranges": json.RawMessage(`{
			"buckets": [
				{"key": "Under $50", "doc_count": 7},
				{"key": "$50-$100", "doc_count": 2}
			]
		}`),
		"price_stats": json.RawMessage(`{"count": 15, "min": 9.99, "max": 499.0, "avg": 88.5, "sum": 1327.5}`),
	}

	buckets, stats, err := decodeAggregations(raw, plan.Facets)
	require.NoError(t, err)

	require.Len(t, buckets["categories"], 2)
	assert.Equal(t, "audio", buckets["categories"][0].Key)
	assert.Equal(t, int64(12), buckets["categories"][0].Count)
	assert.Empty(t, buckets["statuses"])

	require.Len(t, buckets["price_ranges"], 2)
	assert.Equal(t, "Under $50", buckets["price_ranges"][0].Key)

	priceStats := stats["price_stats"]
	assert.Equal(t, int64(15), priceStats.Count)
	assert.Equal(t, 9.99, priceStats.Min)
	assert.Equal(t, 499.0, priceStats.Max)
	assert.Equal(t, 88.5, priceStats.Avg)
	assert.Equal(t, 1327.5, priceStats.Sum)
}

func TestDecodeAggregations_NullStats(t *testing.T) {
	plan := query.Assemble(&domain.SearchRequest{}, query.DefaultOptions())

	raw := map[string]json.RawMessage{
		"price_stats": json.RawMessage(`{"count": 0, "min": null, "max": null, "avg": null, "sum": 0}`),
	}

	_, stats, err := decodeAggregations(raw, plan.Facets)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["price_stats"].Count)
	assert.Equal(t, 0.0, stats["price_stats"].Min)
}
