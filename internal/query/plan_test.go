package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogsearch/internal/domain"
)

func TestAssemble_BrowseMode(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{}, DefaultOptions())

	assert.Nil(t, plan.Text)
	assert.Nil(t, plan.Vector)
	assert.Nil(t, plan.Fusion)
	assert.Nil(t, plan.Suggest)

	require.Len(t, plan.Sort, 1)
	assert.Equal(t, "created_at", plan.Sort[0].Field)

	assert.Equal(t, 0, plan.From)
	assert.Equal(t, DefaultPageSize, plan.Size)
}

func TestAssemble_QueryMode(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{Query: "wireless headphones"}, DefaultOptions())

	require.NotNil(t, plan.Text)
	assert.Equal(t, "wireless headphones", plan.Text.Query)
	assert.Equal(t, []string{"name^3", "description", "tags^2"}, plan.Text.Fields)
	assert.Equal(t, "best_fields", plan.Text.MatchType)
	assert.Equal(t, "AUTO", plan.Text.Fuzziness)

	require.NotNil(t, plan.Vector)
	assert.Equal(t, "product_embedding", plan.Vector.Field)
	assert.Equal(t, "wireless headphones", plan.Vector.QueryText)
	assert.Equal(t, "product-embedding-model", plan.Vector.ModelID)
	assert.Equal(t, 20, plan.Vector.K)
	assert.Equal(t, 100, plan.Vector.NumCandidates)

	require.NotNil(t, plan.Fusion)
	assert.Equal(t, 100, plan.Fusion.WindowSize)
	assert.Equal(t, 60, plan.Fusion.RankConstant)

	require.NotNil(t, plan.Suggest)
	assert.Equal(t, "wireless headphones", plan.Suggest.Text)
}

func TestAssemble_VectorDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.VectorField = ""

	plan := Assemble(&domain.SearchRequest{Query: "laptop"}, opts)

	require.NotNil(t, plan.Text)
	assert.Nil(t, plan.Vector)
	assert.Nil(t, plan.Fusion)
	assert.Empty(t, plan.ExcludeFields)
}

func TestAssemble_HighlightAlwaysPresent(t *testing.T) {
	for _, q := range []string{"", "shoes"} {
		plan := Assemble(&domain.SearchRequest{Query: q}, DefaultOptions())
		require.NotNil(t, plan.Highlight)
		assert.Equal(t, []string{"name", "description"}, plan.Highlight.Fields)
		assert.Equal(t, "<em>", plan.Highlight.PreTag)
		assert.Equal(t, "</em>", plan.Highlight.PostTag)
	}
}

func TestAssemble_FacetsAlwaysPresent(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{}, DefaultOptions())
	require.Len(t, plan.Facets, 4)

	names := make([]string, 0, len(plan.Facets))
	for _, f := range plan.Facets {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{FacetCategories, FacetStatuses, FacetPriceRanges, FacetPriceStats}, names)
}

func TestAssemble_PriceRangeBuckets(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{}, DefaultOptions())

	var ranges []RangeBucket
	for _, f := range plan.Facets {
		if f.Name == FacetPriceRanges {
			ranges = f.Ranges
		}
	}
	require.Len(t, ranges, 5)

	assert.Equal(t, "Under $50", ranges[0].Key)
	assert.Nil(t, ranges[0].From)
	assert.Equal(t, 50.0, *ranges[0].To)

	assert.Equal(t, "$500+", ranges[4].Key)
	assert.Equal(t, 500.0, *ranges[4].From)
	assert.Nil(t, ranges[4].To)
}

func TestAssemble_ExcludesVectorField(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{}, DefaultOptions())
	assert.Equal(t, []string{"product_embedding"}, plan.ExcludeFields)
}

func TestAssemble_Pagination(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{Page: 3, Size: 40}, DefaultOptions())
	assert.Equal(t, 80, plan.From)
	assert.Equal(t, 40, plan.Size)

	clamped := Assemble(&domain.SearchRequest{Page: -1, Size: 500}, DefaultOptions())
	assert.Equal(t, 0, clamped.From)
	assert.Equal(t, MaxPageSize, clamped.Size)
}

func TestAssemble_FiltersCarried(t *testing.T) {
	plan := Assemble(&domain.SearchRequest{
		Query:      "shirt",
		Categories: []string{"apparel"},
		Attributes: map[string][]string{"color": {"Black"}},
		InStock:    true,
	}, DefaultOptions())

	require.Len(t, plan.Filters, 3)
	_, isRange := plan.Filters[0].(RangePredicate)
	assert.True(t, isRange)
	_, isTerm := plan.Filters[1].(TermPredicate)
	assert.True(t, isTerm)

	nested, isNested := plan.Filters[2].(NestedPairPredicate)
	require.True(t, isNested)
	assert.Equal(t, "color", nested.Name)
	assert.Equal(t, "Black", nested.Value)
}

func TestCompletionFor(t *testing.T) {
	req := CompletionFor("wir")
	assert.Equal(t, "wir", req.Prefix)
	assert.Equal(t, "name_suggest", req.Field)
	assert.Equal(t, 8, req.Size)
	assert.True(t, req.SkipDuplicates)
	assert.Equal(t, "AUTO", req.Fuzziness)
	assert.Equal(t, []string{"name", "sku", "price", "status"}, req.SourceFields)
}

func TestCorrectionFor(t *testing.T) {
	req := CorrectionFor("wireles hedphones")
	assert.Equal(t, "wireles hedphones", req.Text)
	assert.Equal(t, "name", req.Field)
	assert.Equal(t, 3, req.Size)
	assert.Equal(t, 3, req.GramSize)
	assert.Equal(t, "popular", req.SuggestMode)
}
