// Package query compiles untyped search requests into engine-neutral query
// plans: filter predicates, text/vector match clauses, sort, pagination,
// facet and suggestion requests. Engines under internal/engine translate a
// Plan into their own wire format.
package query

import "github.com/utafrali/catalogsearch/internal/domain"

// Predicate is a single structured filter constraint. All predicates attached
// to a plan are combined with AND semantics: a hit must satisfy every one.
type Predicate interface {
	isPredicate()
}

// TermPredicate requires an exact value on a keyword field.
type TermPredicate struct {
	Field string
	Value string
}

// RangePredicate constrains a numeric field. Nil bounds are open.
type RangePredicate struct {
	Field string
	GT    *float64
	GTE   *float64
	LTE   *float64
}

// GeoDistancePredicate keeps hits within Distance of the given point.
// Distance carries its unit suffix ("50km", "500m") as the engine expects it.
type GeoDistancePredicate struct {
	Field    string
	Point    domain.GeoPoint
	Distance string
}

// NestedPairPredicate requires a name and a value to co-occur within the same
// nested attribute record, preventing cross-pair false matches.
type NestedPairPredicate struct {
	Path  string
	Name  string
	Value string
}

func (TermPredicate) isPredicate()        {}
func (RangePredicate) isPredicate()       {}
func (GeoDistancePredicate) isPredicate() {}
func (NestedPairPredicate) isPredicate()  {}

// TextClause is a fuzzy multi-field keyword match.
type TextClause struct {
	Query     string
	Fields    []string // with boost suffixes, e.g. "name^3"
	MatchType string
	Fuzziness string
}

// KNNClause is a vector-similarity nearest-neighbor match. QueryText is
// embedded server-side by the engine using ModelID.
type KNNClause struct {
	Field         string
	QueryText     string
	ModelID       string
	K             int
	NumCandidates int
}

// RankFusion holds reciprocal-rank fusion parameters, present only when both
// a text and a vector clause are attached.
type RankFusion struct {
	WindowSize   int
	RankConstant int
}

// SortSpec is one sort key. Geo is set only for geo-distance sorting.
type SortSpec struct {
	Field string // "_score", "price", "created_at", or the geo field
	Order string // "asc" or "desc"
	Geo   *GeoSort
}

// GeoSort orders hits by distance from a point.
type GeoSort struct {
	Point domain.GeoPoint
	Unit  string
}

// HighlightSpec names the fields to return highlighted fragments for.
type HighlightSpec struct {
	Fields  []string
	PreTag  string
	PostTag string
}

// FacetKind discriminates facet request variants.
type FacetKind int

const (
	FacetTerms FacetKind = iota
	FacetRanges
	FacetStats
)

// FacetRequest is a named aggregation attached to a plan.
type FacetRequest struct {
	Name   string
	Kind   FacetKind
	Field  string
	Size   int           // terms facets: top-N buckets by count
	Ranges []RangeBucket // range facets: caller-defined boundaries
}

// RangeBucket is one caller-defined boundary of a range facet. Nil ends are
// open; From is inclusive, To exclusive.
type RangeBucket struct {
	Key  string
	From *float64
	To   *float64
}

// SuggestRequest asks the engine for phrase spelling corrections built from a
// local n-gram model over Field.
type SuggestRequest struct {
	Text        string
	Field       string
	Size        int
	GramSize    int
	SuggestMode string
}

// CompletionRequest asks the engine for prefix completions against a
// dedicated suggestion field.
type CompletionRequest struct {
	Prefix         string
	Field          string
	Size           int
	SkipDuplicates bool
	Fuzziness      string
	SourceFields   []string
}

// Plan is a complete engine-executable search request.
type Plan struct {
	Text          *TextClause
	Vector        *KNNClause
	Fusion        *RankFusion
	Filters       []Predicate
	Sort          []SortSpec
	From          int
	Size          int
	Highlight     *HighlightSpec
	Facets        []FacetRequest
	Suggest       *SuggestRequest
	ExcludeFields []string
}
