package query

import (
	"github.com/utafrali/catalogsearch/internal/domain"
)

// Options control the optional clauses of assembled plans. The zero value
// disables vector search; DefaultOptions enables it with the parameters the
// index pipeline is provisioned for.
type Options struct {
	// VectorField is the dense-vector field to run kNN against. Empty
	// disables the vector clause entirely.
	VectorField string
	// EmbeddingModel is the server-side inference model ID used to embed the
	// query text.
	EmbeddingModel string

	KNNNeighbors  int
	KNNCandidates int

	FusionWindow   int
	FusionConstant int
}

// DefaultOptions returns the assembler options matching the provisioned
// product index.
func DefaultOptions() Options {
	return Options{
		VectorField:    "product_embedding",
		EmbeddingModel: "product-embedding-model",
		KNNNeighbors:   20,
		KNNCandidates:  100,
		FusionWindow:   100,
		FusionConstant: 60,
	}
}

// textMatchFields are the keyword-match fields with their boost weights.
func textMatchFields() []string {
	return []string{"name^3", "description", "tags^2"}
}

// Assemble builds a complete plan from a search request. Page, size and sort
// are resolved here so every caller shares the same policy.
func Assemble(req *domain.SearchRequest, opts Options) *Plan {
	page := ResolvePage(req.Page)
	size := ResolvePageSize(req.Size)

	geo, hasGeo := ParseGeoPoint(req.Lat, req.Lon)
	var geoPtr *domain.GeoPoint
	if hasGeo {
		geoPtr = &geo
	}

	plan := &Plan{
		Filters: BuildFilters(req),
		Sort:    ResolveSort(req.SortBy, req.Query != "", geoPtr),
		From:    Offset(page, size),
		Size:    size,
		Highlight: &HighlightSpec{
			Fields:  []string{"name", "description"},
			PreTag:  "<em>",
			PostTag: "</em>",
		},
		Facets: defaultFacets(),
	}

	if opts.VectorField != "" {
		plan.ExcludeFields = []string{opts.VectorField}
	}

	if req.Query == "" {
		// Browse mode: match everything, no scoring, no vector clause.
		return plan
	}

	plan.Text = &TextClause{
		Query:     req.Query,
		Fields:    textMatchFields(),
		MatchType: "best_fields",
		Fuzziness: "AUTO",
	}

	if opts.VectorField != "" {
		plan.Vector = &KNNClause{
			Field:         opts.VectorField,
			QueryText:     req.Query,
			ModelID:       opts.EmbeddingModel,
			K:             opts.KNNNeighbors,
			NumCandidates: opts.KNNCandidates,
		}
		plan.Fusion = &RankFusion{
			WindowSize:   opts.FusionWindow,
			RankConstant: opts.FusionConstant,
		}
	}

	plan.Suggest = CorrectionFor(req.Query)

	return plan
}

// Facet names shared between the plan and the result normalizer.
const (
	FacetCategories  = "categories"
	FacetStatuses    = "statuses"
	FacetPriceRanges = "price_ranges"
	FacetPriceStats  = "price_stats"
)

// defaultFacets returns the facet requests attached to every search. Facets
// are always scoped to the fully-filtered query.
func defaultFacets() []FacetRequest {
	return []FacetRequest{
		{Name: FacetCategories, Kind: FacetTerms, Field: "category", Size: 50},
		{Name: FacetStatuses, Kind: FacetTerms, Field: "status", Size: 10},
		{Name: FacetPriceRanges, Kind: FacetRanges, Field: "price", Ranges: priceRanges()},
		{Name: FacetPriceStats, Kind: FacetStats, Field: "price"},
	}
}

func priceRanges() []RangeBucket {
	f := func(v float64) *float64 { return &v }
	return []RangeBucket{
		{Key: "Under $50", To: f(50)},
		{Key: "$50-$100", From: f(50), To: f(100)},
		{Key: "$100-$200", From: f(100), To: f(200)},
		{Key: "$200-$500", From: f(200), To: f(500)},
		{Key: "$500+", From: f(500)},
	}
}
