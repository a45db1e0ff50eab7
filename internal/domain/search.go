package domain

import (
	"fmt"
	"sort"
	"time"
)

// Product represents a catalog document in the search index.
type Product struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	Price         float64         `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Tags          []string        `json:"tags"`
	Attributes    []AttributePair `json:"attributes"`
	Location      *GeoPoint       `json:"location,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AttributePair is a single name/value pair inside the nested attributes
// array. Keeping name and value together in one record lets the engine match
// them as a pair instead of independently across records.
type AttributePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GeoPoint is a latitude/longitude coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FlattenAttributes converts a free-form attribute map into the ordered nested
// pair representation. List values are expanded into one pair per element:
//
//	{"color": "Black", "connectivity": ["USB-C", "Bluetooth"]}
//	→ [{color Black} {connectivity USB-C} {connectivity Bluetooth}]
//
// Keys are emitted in sorted order so the result is deterministic.
func FlattenAttributes(attrs map[string]any) []AttributePair {
	if len(attrs) == 0 {
		return []AttributePair{}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]AttributePair, 0, len(attrs))
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case []any:
			for _, item := range v {
				pairs = append(pairs, AttributePair{Name: k, Value: fmt.Sprint(item)})
			}
		case []string:
			for _, item := range v {
				pairs = append(pairs, AttributePair{Name: k, Value: item})
			}
		default:
			pairs = append(pairs, AttributePair{Name: k, Value: fmt.Sprint(v)})
		}
	}
	return pairs
}

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortDistance  = "distance"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortDistance}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchRequest holds all parameters for a search request as received from
// the client. Numeric and geo fields stay raw strings here: a value that
// fails to parse drops the corresponding filter instead of failing the
// request, and that decision belongs to the query compiler, not the HTTP
// layer.
type SearchRequest struct {
	Query      string              `json:"query"`
	Categories []string            `json:"categories,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	Status     string              `json:"status,omitempty"`
	MinPrice   string              `json:"min_price,omitempty"`
	MaxPrice   string              `json:"max_price,omitempty"`
	InStock    bool                `json:"in_stock"`
	Lat        string              `json:"lat,omitempty"`
	Lon        string              `json:"lon,omitempty"`
	Distance   string              `json:"distance,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
	SortBy     string              `json:"sort_by"`
	Page       int                 `json:"page"`
	Size       int                 `json:"size"`
}

// ScoredHit is a single search result with its relevance metadata. Score is
// nil when the engine did not compute relevance (pure filter browsing).
type ScoredHit struct {
	Product   Product             `json:"product"`
	Score     *float64            `json:"score"`
	Highlight map[string][]string `json:"highlight"`
	Sort      []any               `json:"sort,omitempty"`
}

// FacetBucket is one bucket of a terms or range facet.
type FacetBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// FacetStats holds scalar statistics over a numeric field.
type FacetStats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
}

// Facets is the normalized facet section of a search response.
type Facets struct {
	Categories  []FacetBucket `json:"categories"`
	Statuses    []FacetBucket `json:"statuses"`
	PriceRanges []FacetBucket `json:"price_ranges"`
	PriceStats  FacetStats    `json:"price_stats"`
}

// SearchResult holds the paginated search response.
type SearchResult struct {
	Hits        []ScoredHit `json:"hits"`
	Total       int64       `json:"total"`
	Facets      Facets      `json:"facets"`
	Suggestions []string    `json:"suggestions"`
	Page        int         `json:"page"`
	Size        int         `json:"size"`
	Pages       int         `json:"pages"`
	TookMs      int64       `json:"took_ms"`
}

// Completion is a single autocomplete candidate.
type Completion struct {
	Text    string   `json:"text"`
	Score   float64  `json:"score"`
	Product *Product `json:"product,omitempty"`
}

// Correction is a single "did you mean" spelling candidate.
type Correction struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
