package memory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// It interprets query plans directly over a map of products and is intended
// for local development and tests where no Elasticsearch cluster is running.
type Engine struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	logger   *slog.Logger
}

// New creates a new empty in-memory engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{
		products: make(map[string]domain.Product),
		logger:   logger,
	}
}

// Index adds or updates a product keyed by SKU.
func (e *Engine) Index(_ context.Context, product *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.products[product.SKU] = *product
	return nil
}

// Delete removes a product by SKU. Deleting an unknown SKU is a no-op.
func (e *Engine) Delete(_ context.Context, sku string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.products, sku)
	return nil
}

// BulkIndex adds or updates multiple products.
func (e *Engine) BulkIndex(_ context.Context, products []domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.products[products[i].SKU] = products[i]
	}
	return nil
}

// Count returns the number of indexed products.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.products)
}

// Execute interprets a query plan over the in-memory product set.
func (e *Engine) Execute(_ context.Context, plan *query.Plan) (*engine.QueryResponse, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var matched []engine.Hit
	for _, p := range e.products {
		if !matchesFilters(&p, plan.Filters) {
			continue
		}

		hit := engine.Hit{Product: p}
		if plan.Text != nil {
			score, highlight := matchText(&p, plan.Text.Query)
			if score == 0 {
				continue
			}
			s := score
			hit.Score = &s
			hit.Highlight = highlight
		}
		matched = append(matched, hit)
	}

	sortHits(matched, plan.Sort)

	resp := &engine.QueryResponse{
		Total: int64(len(matched)),
	}
	resp.Buckets, resp.Stats = computeFacets(matched, plan.Facets)

	start := plan.From
	if start > len(matched) {
		start = len(matched)
	}
	end := start + plan.Size
	if end > len(matched) {
		end = len(matched)
	}
	resp.Hits = matched[start:end]

	return resp, nil
}

// Complete returns products whose name or tags start with the given prefix,
// heaviest stock first.
func (e *Engine) Complete(_ context.Context, req *query.CompletionRequest) ([]engine.SuggestionOption, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	prefix := strings.ToLower(req.Prefix)

	var options []engine.SuggestionOption
	seen := make(map[string]bool)

	for sku := range e.products {
		p := e.products[sku]
		text, ok := prefixMatch(&p, prefix)
		if !ok {
			continue
		}
		if req.SkipDuplicates && seen[text] {
			continue
		}
		seen[text] = true

		product := p
		weight := p.StockQuantity
		if weight < 1 {
			weight = 1
		}
		options = append(options, engine.SuggestionOption{
			Text:    text,
			Score:   float64(weight),
			Product: &product,
		})
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Score != options[j].Score {
			return options[i].Score > options[j].Score
		}
		return options[i].Text < options[j].Text
	})

	if req.Size > 0 && len(options) > req.Size {
		options = options[:req.Size]
	}
	return options, nil
}

// Correct always returns no corrections. The in-memory engine has no term
// frequency model to base spelling candidates on.
func (e *Engine) Correct(_ context.Context, _ *query.SuggestRequest) ([]engine.SuggestionOption, error) {
	return nil, nil
}

func prefixMatch(p *domain.Product, prefix string) (string, bool) {
	if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
		return p.Name, true
	}
	for _, tag := range p.Tags {
		if strings.HasPrefix(strings.ToLower(tag), prefix) {
			return tag, true
		}
	}
	return "", false
}

// matchText scores a product against a free-text query using weighted
// substring matching and returns highlight fragments for matched fields.
func matchText(p *domain.Product, text string) (float64, map[string][]string) {
	q := strings.ToLower(text)

	var score float64
	highlight := make(map[string][]string)

	if frag, ok := highlightFragment(p.Name, q); ok {
		score += 3
		highlight["name"] = []string{frag}
	}
	if frag, ok := highlightFragment(p.Description, q); ok {
		score++
		highlight["description"] = []string{frag}
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			score += 2
			break
		}
	}

	if score == 0 {
		return 0, nil
	}
	return score, highlight
}

// highlightFragment wraps the first case-insensitive occurrence of the query
// in emphasis tags, mirroring the highlighter of a real engine.
func highlightFragment(value, query string) (string, bool) {
	idx := strings.Index(strings.ToLower(value), query)
	if idx < 0 {
		return "", false
	}
	end := idx + len(query)
	return value[:idx] + "<em>" + value[idx:end] + "</em>" + value[end:], true
}

func matchesFilters(p *domain.Product, filters []query.Predicate) bool {
	for _, f := range filters {
		switch pred := f.(type) {
		case query.TermPredicate:
			if !matchesTerm(p, pred) {
				return false
			}
		case query.RangePredicate:
			if !matchesRange(p, pred) {
				return false
			}
		case query.GeoDistancePredicate:
			if !matchesGeo(p, pred) {
				return false
			}
		case query.NestedPairPredicate:
			if !matchesAttribute(p, pred) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchesTerm(p *domain.Product, pred query.TermPredicate) bool {
	switch pred.Field {
	case "category":
		return p.Category == pred.Value
	case "status":
		return p.Status == pred.Value
	case "tags":
		for _, tag := range p.Tags {
			if tag == pred.Value {
				return true
			}
		}
		return false
	case "sku":
		return p.SKU == pred.Value
	default:
		return false
	}
}

func matchesRange(p *domain.Product, pred query.RangePredicate) bool {
	var value float64
	switch pred.Field {
	case "price":
		value = p.Price
	case "stock_quantity":
		value = float64(p.StockQuantity)
	default:
		return false
	}

	if pred.GT != nil && !(value > *pred.GT) {
		return false
	}
	if pred.GTE != nil && value < *pred.GTE {
		return false
	}
	if pred.LTE != nil && value > *pred.LTE {
		return false
	}
	return true
}

func matchesGeo(p *domain.Product, pred query.GeoDistancePredicate) bool {
	if p.Location == nil {
		return false
	}
	radius, ok := parseDistanceKm(pred.Distance)
	if !ok {
		return false
	}
	return haversineKm(pred.Point, *p.Location) <= radius
}

func matchesAttribute(p *domain.Product, pred query.NestedPairPredicate) bool {
	for _, attr := range p.Attributes {
		if attr.Name == pred.Name && attr.Value == pred.Value {
			return true
		}
	}
	return false
}

// parseDistanceKm understands the km and m unit suffixes used by the filter
// builder.
func parseDistanceKm(distance string) (float64, bool) {
	s := strings.TrimSpace(strings.ToLower(distance))
	unit := 1.0

	switch {
	case strings.HasSuffix(s, "km"):
		s = strings.TrimSuffix(s, "km")
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
		unit = 0.001
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return value * unit, true
}

const earthRadiusKm = 6371.0

func haversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func sortHits(hits []engine.Hit, specs []query.SortSpec) {
	if len(specs) == 0 {
		return
	}

	sort.SliceStable(hits, func(i, j int) bool {
		for _, spec := range specs {
			vi := sortValue(&hits[i], spec)
			vj := sortValue(&hits[j], spec)
			if vi == vj {
				continue
			}
			if spec.Order == "desc" {
				return vi > vj
			}
			return vi < vj
		}
		return false
	})
}

func sortValue(hit *engine.Hit, spec query.SortSpec) float64 {
	p := &hit.Product
	if spec.Geo != nil {
		if p.Location == nil {
			return math.MaxFloat64
		}
		return haversineKm(spec.Geo.Point, *p.Location)
	}

	switch spec.Field {
	case "price":
		return p.Price
	case "created_at":
		return float64(p.CreatedAt.UnixNano())
	case "stock_quantity":
		return float64(p.StockQuantity)
	case "_score":
		if hit.Score == nil {
			return 0
		}
		return *hit.Score
	default:
		return 0
	}
}

func computeFacets(hits []engine.Hit, facets []query.FacetRequest) (map[string][]engine.Bucket, map[string]engine.Stats) {
	if len(facets) == 0 {
		return nil, nil
	}

	buckets := make(map[string][]engine.Bucket)
	stats := make(map[string]engine.Stats)

	for _, facet := range facets {
		switch facet.Kind {
		case query.FacetTerms:
			buckets[facet.Name] = termBuckets(hits, facet)
		case query.FacetRanges:
			buckets[facet.Name] = rangeBuckets(hits, facet)
		case query.FacetStats:
			stats[facet.Name] = fieldStats(hits, facet.Field)
		}
	}
	return buckets, stats
}

func termBuckets(hits []engine.Hit, facet query.FacetRequest) []engine.Bucket {
	counts := make(map[string]int64)
	for i := range hits {
		var key string
		switch facet.Field {
		case "category":
			key = hits[i].Product.Category
		case "status":
			key = hits[i].Product.Status
		}
		if key != "" {
			counts[key]++
		}
	}

	result := make([]engine.Bucket, 0, len(counts))
	for key, count := range counts {
		result = append(result, engine.Bucket{Key: key, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})

	if facet.Size > 0 && len(result) > facet.Size {
		result = result[:facet.Size]
	}
	return result
}

// rangeBuckets counts hits per half-open [from, to) price interval, keeping
// the declared bucket order.
func rangeBuckets(hits []engine.Hit, facet query.FacetRequest) []engine.Bucket {
	result := make([]engine.Bucket, 0, len(facet.Ranges))

	for _, r := range facet.Ranges {
		var count int64
		for i := range hits {
			price := hits[i].Product.Price
			if r.From != nil && price < *r.From {
				continue
			}
			if r.To != nil && price >= *r.To {
				continue
			}
			count++
		}
		result = append(result, engine.Bucket{Key: r.Key, Count: count})
	}
	return result
}

func fieldStats(hits []engine.Hit, field string) engine.Stats {
	if field != "price" || len(hits) == 0 {
		return engine.Stats{}
	}

	stats := engine.Stats{
		Count: int64(len(hits)),
		Min:   math.MaxFloat64,
		Max:   -math.MaxFloat64,
	}

	for i := range hits {
		price := hits[i].Product.Price
		if price < stats.Min {
			stats.Min = price
		}
		if price > stats.Max {
			stats.Max = price
		}
		stats.Sum += price
	}

	stats.Avg = stats.Sum / float64(stats.Count)
	return stats
}
