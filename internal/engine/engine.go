package engine

import (
	"context"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/query"
)

// QueryResponse is the engine-neutral result of executing a query plan. The
// result normalizer in the service layer depends only on this shape, never on
// a specific engine's wire format.
type QueryResponse struct {
	TookMs      int64
	Total       int64
	Hits        []Hit
	Buckets     map[string][]Bucket
	Stats       map[string]Stats
	Suggestions []SuggestionOption
}

// Hit is a single matched document.
type Hit struct {
	Product   domain.Product
	Score     *float64
	Highlight map[string][]string
	Sort      []any
}

// Bucket is one facet bucket in the order the engine returned it.
type Bucket struct {
	Key   string
	Count int64
}

// Stats holds scalar statistics for a stats facet.
type Stats struct {
	Count int64
	Min   float64
	Max   float64
	Avg   float64
	Sum   float64
}

// SuggestionOption is a completion or correction candidate.
type SuggestionOption struct {
	Text    string
	Score   float64
	Product *domain.Product
}

// SearchEngine defines the interface for indexing and querying products.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type SearchEngine interface {
	// Index adds or updates a single product in the search index.
	Index(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the search index by its SKU.
	Delete(ctx context.Context, sku string) error

	// BulkIndex adds or updates multiple products in the search index.
	BulkIndex(ctx context.Context, products []domain.Product) error

	// Execute runs a full query plan and returns the raw engine response.
	Execute(ctx context.Context, plan *query.Plan) (*QueryResponse, error)

	// Complete returns prefix completion candidates.
	Complete(ctx context.Context, req *query.CompletionRequest) ([]SuggestionOption, error)

	// Correct returns phrase spelling-correction candidates.
	Correct(ctx context.Context, req *query.SuggestRequest) ([]SuggestionOption, error)
}
