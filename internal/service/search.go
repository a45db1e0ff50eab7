package service

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/utafrali/catalogsearch/pkg/errors"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// reindexBatchSize is the number of products fetched from the catalog source
// per batch during a full reindex.
const reindexBatchSize = 500

// ProductSource provides catalog products for full reindexing, typically
// backed by the product database.
type ProductSource interface {
	FetchBatch(ctx context.Context, limit, offset int) ([]domain.Product, error)
}

// SearchService coordinates query compilation, engine execution, and result
// normalization.
type SearchService struct {
	engine engine.SearchEngine
	source ProductSource
	logger *slog.Logger
	opts   query.Options
}

// NewSearchService creates a new search service backed by the given engine.
// The product source may be nil when reindexing is not wired up.
func NewSearchService(eng engine.SearchEngine, source ProductSource, logger *slog.Logger, opts query.Options) *SearchService {
	return &SearchService{
		engine: eng,
		source: source,
		logger: logger,
		opts:   opts,
	}
}

// Search compiles the request into a query plan, executes it, and normalizes
// the engine response.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResult, error) {
	plan := query.Assemble(req, s.opts)

	resp, err := s.engine.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	result := normalizeResult(resp, plan)

	s.logger.InfoContext(ctx, "search executed",
		slog.String("query", req.Query),
		slog.Int64("total", result.Total),
		slog.Int("page", result.Page),
		slog.Int("size", result.Size),
		slog.Int64("took_ms", result.TookMs),
	)

	return result, nil
}

// Autocomplete returns prefix completion candidates. An empty or whitespace
// prefix returns an empty list without touching the engine.
func (s *SearchService) Autocomplete(ctx context.Context, prefix string) ([]domain.Completion, error) {
	if strings.TrimSpace(prefix) == "" {
		return []domain.Completion{}, nil
	}

	options, err := s.engine.Complete(ctx, query.CompletionFor(prefix))
	if err != nil {
		return nil, err
	}

	completions := make([]domain.Completion, 0, len(options))
	for _, opt := range options {
		completions = append(completions, domain.Completion{
			Text:    opt.Text,
			Score:   opt.Score,
			Product: opt.Product,
		})
	}
	return completions, nil
}

// Suggest returns "did you mean" spelling corrections. Empty input returns
// an empty list without touching the engine.
func (s *SearchService) Suggest(ctx context.Context, text string) ([]domain.Correction, error) {
	if strings.TrimSpace(text) == "" {
		return []domain.Correction{}, nil
	}

	options, err := s.engine.Correct(ctx, query.CorrectionFor(text))
	if err != nil {
		return nil, err
	}

	corrections := make([]domain.Correction, 0, len(options))
	for _, opt := range options {
		corrections = append(corrections, domain.Correction{
			Text:  opt.Text,
			Score: opt.Score,
		})
	}
	return corrections, nil
}

// IndexProduct adds or updates a single product in the search index.
func (s *SearchService) IndexProduct(ctx context.Context, product *domain.Product) error {
	if product.SKU == "" {
		return apperrors.InvalidInput("product sku is required")
	}
	if product.Name == "" {
		return apperrors.InvalidInput("product name is required")
	}

	if err := s.engine.Index(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to index product",
			slog.String("sku", product.SKU),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// BulkIndexProducts adds or updates multiple products in the search index.
func (s *SearchService) BulkIndexProducts(ctx context.Context, products []domain.Product) error {
	for i := range products {
		if products[i].SKU == "" {
			return apperrors.InvalidInput("product sku is required")
		}
	}

	if err := s.engine.BulkIndex(ctx, products); err != nil {
		s.logger.ErrorContext(ctx, "failed to bulk index products",
			slog.Int("count", len(products)),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// DeleteProduct removes a product from the search index by SKU.
func (s *SearchService) DeleteProduct(ctx context.Context, sku string) error {
	if sku == "" {
		return apperrors.InvalidInput("product sku is required")
	}
	return s.engine.Delete(ctx, sku)
}

// Reindex rebuilds the search index from the catalog source in batches and
// returns the number of products indexed.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if s.source == nil {
		return 0, apperrors.InvalidInput("no catalog source configured for reindexing")
	}

	total := 0
	offset := 0

	for {
		batch, err := s.source.FetchBatch(ctx, reindexBatchSize, offset)
		if err != nil {
			return total, apperrors.Wrap(err, "fetch reindex batch")
		}
		if len(batch) == 0 {
			break
		}

		if err := s.engine.BulkIndex(ctx, batch); err != nil {
			return total, apperrors.Wrap(err, "bulk index reindex batch")
		}

		total += len(batch)
		offset += len(batch)

		s.logger.InfoContext(ctx, "reindex batch complete",
			slog.Int("batch", len(batch)),
			slog.Int("total", total),
		)

		if len(batch) < reindexBatchSize {
			break
		}
	}

	s.logger.InfoContext(ctx, "reindex complete", slog.Int("total", total))
	return total, nil
}
