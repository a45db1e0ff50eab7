package elasticsearch

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// buildSearchBody translates an engine-neutral plan into the Elasticsearch
// query DSL as a map.
func buildSearchBody(plan *query.Plan) map[string]any {
	boolQuery := map[string]any{}

	var matchClauses []any
	if plan.Text != nil {
		matchClauses = append(matchClauses, map[string]any{
			"multi_match": map[string]any{
				"query":     plan.Text.Query,
				"fields":    plan.Text.Fields,
				"type":      plan.Text.MatchType,
				"fuzziness": plan.Text.Fuzziness,
			},
		})
	}
	if plan.Vector != nil {
		matchClauses = append(matchClauses, map[string]any{
			"knn": map[string]any{
				"field": plan.Vector.Field,
				"query_vector_builder": map[string]any{
					"text_embedding": map[string]any{
						"model_id":   plan.Vector.ModelID,
						"model_text": plan.Vector.QueryText,
					},
				},
				"k":              plan.Vector.K,
				"num_candidates": plan.Vector.NumCandidates,
			},
		})
	}

	// Hybrid search puts both ranked clauses in "should" and fuses them with
	// RRF; a lone keyword clause is a plain "must".
	switch {
	case len(matchClauses) > 1:
		boolQuery["should"] = matchClauses
	case len(matchClauses) == 1:
		boolQuery["must"] = matchClauses
	default:
		boolQuery["must"] = []any{map[string]any{"match_all": map[string]any{}}}
	}

	if filters := buildFilterDSL(plan.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             plan.From,
		"size":             plan.Size,
		"track_total_hits": true,
	}

	// Rank fusion and an explicit sort are mutually exclusive: Elasticsearch
	// rejects a body carrying both, and a sort would override the fused
	// ordering anyway. Fusion only applies when the plan keeps relevance
	// ordering; a requested non-relevance sort wins over it.
	if plan.Fusion != nil && len(matchClauses) > 1 && relevanceOrdered(plan.Sort) {
		body["rank"] = map[string]any{
			"rrf": map[string]any{
				"window_size":   plan.Fusion.WindowSize,
				"rank_constant": plan.Fusion.RankConstant,
			},
		}
	} else if sortDSL := buildSortDSL(plan.Sort); len(sortDSL) > 0 {
		body["sort"] = sortDSL
	}

	if plan.Highlight != nil {
		fields := make(map[string]any, len(plan.Highlight.Fields))
		for _, f := range plan.Highlight.Fields {
			fields[f] = map[string]any{}
		}
		body["highlight"] = map[string]any{
			"fields":    fields,
			"pre_tags":  []string{plan.Highlight.PreTag},
			"post_tags": []string{plan.Highlight.PostTag},
		}
	}

	if len(plan.Facets) > 0 {
		body["aggs"] = buildAggsDSL(plan.Facets)
	}

	if plan.Suggest != nil {
		body["suggest"] = map[string]any{
			suggestContextName: map[string]any{
				"text":   plan.Suggest.Text,
				"phrase": buildPhraseSuggest(plan.Suggest),
			},
		}
	}

	if len(plan.ExcludeFields) > 0 {
		body["_source"] = map[string]any{"excludes": plan.ExcludeFields}
	}

	return body
}

// relevanceOrdered reports whether the plan orders hits by the engine's own
// scoring, either implicitly or with a leading _score sort key.
func relevanceOrdered(specs []query.SortSpec) bool {
	return len(specs) == 0 || specs[0].Field == "_score"
}

// buildFilterDSL converts predicates into bool filter clauses.
func buildFilterDSL(predicates []query.Predicate) []any {
	filters := make([]any, 0, len(predicates))
	for _, p := range predicates {
		switch pred := p.(type) {
		case query.TermPredicate:
			filters = append(filters, map[string]any{
				"term": map[string]any{pred.Field: pred.Value},
			})
		case query.RangePredicate:
			bounds := map[string]any{}
			if pred.GT != nil {
				bounds["gt"] = *pred.GT
			}
			if pred.GTE != nil {
				bounds["gte"] = *pred.GTE
			}
			if pred.LTE != nil {
				bounds["lte"] = *pred.LTE
			}
			filters = append(filters, map[string]any{
				"range": map[string]any{pred.Field: bounds},
			})
		case query.GeoDistancePredicate:
			filters = append(filters, map[string]any{
				"geo_distance": map[string]any{
					"distance": pred.Distance,
					pred.Field: map[string]any{"lat": pred.Point.Lat, "lon": pred.Point.Lon},
				},
			})
		case query.NestedPairPredicate:
			filters = append(filters, map[string]any{
				"nested": map[string]any{
					"path": pred.Path,
					"query": map[string]any{
						"bool": map[string]any{
							"must": []any{
								map[string]any{"term": map[string]any{pred.Path + ".name": pred.Name}},
								map[string]any{"term": map[string]any{pred.Path + ".value": pred.Value}},
							},
						},
					},
				},
			})
		}
	}
	return filters
}

// buildSortDSL converts sort specs into the DSL sort array.
func buildSortDSL(specs []query.SortSpec) []any {
	sorts := make([]any, 0, len(specs))
	for _, s := range specs {
		if s.Geo != nil {
			sorts = append(sorts, map[string]any{
				"_geo_distance": map[string]any{
					s.Field: map[string]any{"lat": s.Geo.Point.Lat, "lon": s.Geo.Point.Lon},
					"order": s.Order,
					"unit":  s.Geo.Unit,
				},
			})
			continue
		}
		sorts = append(sorts, map[string]any{s.Field: s.Order})
	}
	return sorts
}

// buildAggsDSL converts facet requests into the aggregations section.
func buildAggsDSL(facets []query.FacetRequest) map[string]any {
	aggs := make(map[string]any, len(facets))
	for _, f := range facets {
		switch f.Kind {
		case query.FacetTerms:
			aggs[f.Name] = map[string]any{
				"terms": map[string]any{"field": f.Field, "size": f.Size},
			}
		case query.FacetRanges:
			ranges := make([]any, 0, len(f.Ranges))
			for _, r := range f.Ranges {
				rng := map[string]any{"key": r.Key}
				if r.From != nil {
					rng["from"] = *r.From
				}
				if r.To != nil {
					rng["to"] = *r.To
				}
				ranges = append(ranges, rng)
			}
			aggs[f.Name] = map[string]any{
				"range": map[string]any{"field": f.Field, "ranges": ranges},
			}
		case query.FacetStats:
			aggs[f.Name] = map[string]any{
				"stats": map[string]any{"field": f.Field},
			}
		}
	}
	return aggs
}

// decodeAggregations maps raw aggregation sections onto the engine-neutral
// bucket and stats shapes, keyed by facet name and preserving bucket order.
func decodeAggregations(raw map[string]json.RawMessage, facets []query.FacetRequest) (map[string][]engine.Bucket, map[string]engine.Stats, error) {
	buckets := make(map[string][]engine.Bucket)
	stats := make(map[string]engine.Stats)

	for _, f := range facets {
		section, ok := raw[f.Name]
		if !ok {
			continue
		}

		switch f.Kind {
		case query.FacetTerms, query.FacetRanges:
			var agg esAggBuckets
			if err := json.Unmarshal(section, &agg); err != nil {
				return nil, nil, fmt.Errorf("decode aggregation %q: %w", f.Name, err)
			}
			bs := make([]engine.Bucket, 0, len(agg.Buckets))
			for _, b := range agg.Buckets {
				bs = append(bs, engine.Bucket{Key: bucketKey(b), Count: b.DocCount})
			}
			buckets[f.Name] = bs
		case query.FacetStats:
			var agg esAggStats
			if err := json.Unmarshal(section, &agg); err != nil {
				return nil, nil, fmt.Errorf("decode aggregation %q: %w", f.Name, err)
			}
			stats[f.Name] = engine.Stats{
				Count: agg.Count,
				Min:   deref(agg.Min),
				Max:   deref(agg.Max),
				Avg:   deref(agg.Avg),
				Sum:   deref(agg.Sum),
			}
		}
	}

	return buckets, stats, nil
}

// esAggBuckets decodes a terms or range aggregation. Keys may be strings or
// numbers depending on the field type.
type esAggBuckets struct {
	Buckets []esAggBucket `json:"buckets"`
}

type esAggBucket struct {
	Key         any    `json:"key"`
	KeyAsString string `json:"key_as_string"`
	DocCount    int64  `json:"doc_count"`
}

// esAggStats decodes a stats aggregation. Min/max/avg are null when the
// filtered set is empty.
type esAggStats struct {
	Count int64    `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Avg   *float64 `json:"avg"`
	Sum   *float64 `json:"sum"`
}

func bucketKey(b esAggBucket) string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	switch k := b.Key.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return fmt.Sprint(k)
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// buildPhraseSuggest translates a spelling suggestion request into the phrase
// suggester section shared by full searches and the standalone suggest call.
func buildPhraseSuggest(req *query.SuggestRequest) map[string]any {
	return map[string]any{
		"field":     req.Field,
		"size":      req.Size,
		"gram_size": req.GramSize,
		"direct_generator": []any{
			map[string]any{
				"field":        req.Field,
				"suggest_mode": req.SuggestMode,
			},
		},
	}
}
