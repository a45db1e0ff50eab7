package service

import (
	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// normalizeResult maps an engine response onto the stable response shape.
// It is a pure function of its inputs: hit order and facet bucket order are
// preserved exactly as the engine returned them.
func normalizeResult(resp *engine.QueryResponse, plan *query.Plan) *domain.SearchResult {
	size := plan.Size
	page := plan.From/size + 1

	result := &domain.SearchResult{
		Hits:        make([]domain.ScoredHit, 0, len(resp.Hits)),
		Total:       resp.Total,
		Suggestions: make([]string, 0, len(resp.Suggestions)),
		Page:        page,
		Size:        size,
		Pages:       totalPages(resp.Total, size),
		TookMs:      resp.TookMs,
	}

	for _, hit := range resp.Hits {
		highlight := hit.Highlight
		if highlight == nil {
			highlight = map[string][]string{}
		}
		result.Hits = append(result.Hits, domain.ScoredHit{
			Product:   hit.Product,
			Score:     hit.Score,
			Highlight: highlight,
			Sort:      hit.Sort,
		})
	}

	result.Facets = domain.Facets{
		Categories:  facetBuckets(resp.Buckets[query.FacetCategories]),
		Statuses:    facetBuckets(resp.Buckets[query.FacetStatuses]),
		PriceRanges: facetBuckets(resp.Buckets[query.FacetPriceRanges]),
	}
	if stats, ok := resp.Stats[query.FacetPriceStats]; ok {
		result.Facets.PriceStats = domain.FacetStats{
			Count: stats.Count,
			Min:   stats.Min,
			Max:   stats.Max,
			Avg:   stats.Avg,
			Sum:   stats.Sum,
		}
	}

	for _, opt := range resp.Suggestions {
		result.Suggestions = append(result.Suggestions, opt.Text)
	}

	return result
}

func facetBuckets(buckets []engine.Bucket) []domain.FacetBucket {
	out := make([]domain.FacetBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, domain.FacetBucket{Key: b.Key, Count: b.Count})
	}
	return out
}

// totalPages is zero for an empty result set, otherwise ceil(total/size).
func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
