package query

import "github.com/utafrali/catalogsearch/internal/domain"

// Pagination defaults and bounds shared by every request path.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ResolvePage returns the effective 1-based page number.
func ResolvePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ResolvePageSize clamps the requested size to [1, MaxPageSize], falling back
// to DefaultPageSize when absent or non-positive.
func ResolvePageSize(size int) int {
	if size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Offset computes the engine offset from resolved page and size.
func Offset(page, size int) int {
	return (page - 1) * size
}

// ResolveSort maps the requested sort mode to concrete sort keys.
//
//   - relevance with query text: score descending with stock as tiebreak
//   - relevance without query text (browse mode): newest first
//   - distance without a usable geo point: falls back as if relevance
//   - unrecognized values: treated as relevance, never an error
func ResolveSort(sortBy string, hasQuery bool, geo *domain.GeoPoint) []SortSpec {
	switch sortBy {
	case domain.SortPriceAsc:
		return []SortSpec{{Field: "price", Order: "asc"}}
	case domain.SortPriceDesc:
		return []SortSpec{{Field: "price", Order: "desc"}}
	case domain.SortNewest:
		return []SortSpec{{Field: "created_at", Order: "desc"}}
	case domain.SortDistance:
		if geo != nil {
			return []SortSpec{{
				Field: "location",
				Order: "asc",
				Geo:   &GeoSort{Point: *geo, Unit: "km"},
			}}
		}
	}

	// Relevance (and every fallback). Without query text there is nothing to
	// score, so browse mode orders by recency instead.
	if !hasQuery {
		return []SortSpec{{Field: "created_at", Order: "desc"}}
	}
	return []SortSpec{
		{Field: "_score", Order: "desc"},
		{Field: "stock_quantity", Order: "desc"},
	}
}
