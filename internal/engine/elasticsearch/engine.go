package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/catalogsearch/pkg/errors"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/engine"
	"github.com/utafrali/catalogsearch/internal/query"
)

// suggestContextName is the key used for the phrase suggest section in both
// the request body and the response.
const suggestContextName = "spelling"

var (
	engineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_engine_requests_total",
			Help: "Total number of requests issued to the search engine",
		},
		[]string{"operation", "outcome"},
	)

	engineRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_engine_request_duration_seconds",
			Help:    "Search engine request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Config holds Elasticsearch engine configuration.
type Config struct {
	URL   string
	Index string

	// RequestTimeout bounds every engine round trip.
	RequestTimeout time.Duration

	// MaxRetries is the number of attempts for retryable transport failures.
	MaxRetries int
}

// Engine is an Elasticsearch-backed implementation of the SearchEngine
// interface. Query execution is wrapped in a per-call timeout, bounded retry
// with exponential backoff for transport failures, and a circuit breaker that
// converts a persistently unreachable cluster into a service-unavailable
// error instead of a request pile-up.
type Engine struct {
	client     *elasticsearch.Client
	indexName  string
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries int
	breaker    *gobreaker.CircuitBreaker[*esSearchResponse]
}

// esSearchResponse is the structure used to decode Elasticsearch search
// responses, including aggregation and suggest sections.
type esSearchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []esHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage  `json:"aggregations"`
	Suggest      map[string][]esSuggestEntry `json:"suggest"`
}

type esHit struct {
	Source    domain.Product      `json:"_source"`
	Score     *float64            `json:"_score"`
	Highlight map[string][]string `json:"highlight"`
	Sort      []any               `json:"sort"`
}

type esSuggestEntry struct {
	Options []esSuggestOption `json:"options"`
}

// esSuggestOption covers both suggester variants: phrase options carry
// "score", completion options carry "_score" and a source document.
type esSuggestOption struct {
	Text     string          `json:"text"`
	Score    float64         `json:"score"`
	HitScore *float64        `json:"_score"`
	Source   *domain.Product `json:"_source"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine connected to the configured URL.
// It ensures the products index exists, creating it if necessary.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[*esSearchResponse](gobreaker.Settings{
		Name:        "elasticsearch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})

	e := &Engine{
		client:     client,
		indexName:  cfg.Index,
		logger:     logger,
		timeout:    cfg.RequestTimeout,
		maxRetries: cfg.MaxRetries,
		breaker:    breaker,
	}

	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", e.indexName)
		return nil
	}

	mapping := buildIndexMapping()
	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("create index: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("create index: unexpected status %s", res.Status())
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// Execute runs a query plan and maps the response to the engine-neutral shape.
func (e *Engine) Execute(ctx context.Context, plan *query.Plan) (*engine.QueryResponse, error) {
	body := buildSearchBody(plan)

	esResp, err := e.search(ctx, "search", body)
	if err != nil {
		return nil, err
	}

	resp := &engine.QueryResponse{
		TookMs: esResp.Took,
		Total:  esResp.Hits.Total.Value,
		Hits:   make([]engine.Hit, 0, len(esResp.Hits.Hits)),
	}

	for _, hit := range esResp.Hits.Hits {
		resp.Hits = append(resp.Hits, engine.Hit{
			Product:   hit.Source,
			Score:     hit.Score,
			Highlight: hit.Highlight,
			Sort:      hit.Sort,
		})
	}

	buckets, stats, err := decodeAggregations(esResp.Aggregations, plan.Facets)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	resp.Buckets = buckets
	resp.Stats = stats

	resp.Suggestions = suggestOptions(esResp, suggestContextName)

	return resp, nil
}

// search executes one search body through the circuit breaker and the retry
// policy, classifying failures as retryable transport errors or permanent
// plan rejections.
func (e *Engine) search(ctx context.Context, operation string, body map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: marshal query: %w", operation, err)
	}

	start := time.Now()
	resp, err := e.breaker.Execute(func() (*esSearchResponse, error) {
		return e.searchWithRetry(ctx, data)
	})
	engineRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		engineRequestsTotal.WithLabelValues(operation, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Unavailable("search engine temporarily unavailable")
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		// Transport failure that survived all retries.
		e.logger.ErrorContext(ctx, "elasticsearch unreachable",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return nil, apperrors.Unavailable("search engine unreachable")
	}

	engineRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return resp, nil
}

// searchWithRetry performs the raw search call with exponential backoff on
// retryable failures. Each attempt gets the configured request timeout.
func (e *Engine) searchWithRetry(ctx context.Context, data []byte) (*esSearchResponse, error) {
	operation := func() (*esSearchResponse, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.doSearch(attemptCtx, data)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 200 * time.Millisecond
	expo.MaxInterval = 2 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(e.maxRetries)),
	)
}

// doSearch performs a single search round trip.
func (e *Engine) doSearch(ctx context.Context, data []byte) (*esSearchResponse, error) {
	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		// Connection refused, timeout: retryable.
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		decErr := json.NewDecoder(res.Body).Decode(&errResp)

		// 5xx and 429 are worth retrying; anything else is a rejected query
		// shape and will not get better on a second attempt.
		if res.StatusCode >= 500 || res.StatusCode == 429 {
			if decErr == nil {
				return nil, fmt.Errorf("elasticsearch search: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
			}
			return nil, fmt.Errorf("elasticsearch search: unexpected status %s", res.Status())
		}

		if decErr == nil && res.StatusCode == 400 {
			return nil, backoff.Permanent(
				apperrors.InvalidInput(fmt.Sprintf("search query rejected: %s", errResp.Error.Reason)))
		}
		if decErr == nil {
			return nil, backoff.Permanent(
				apperrors.Internal(fmt.Errorf("elasticsearch search: [%s] %s", errResp.Error.Type, errResp.Error.Reason)))
		}
		return nil, backoff.Permanent(
			apperrors.Internal(fmt.Errorf("elasticsearch search: unexpected status %s", res.Status())))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("elasticsearch search: decode response: %w", err))
	}

	return &esResp, nil
}

// suggestOptions extracts the candidates of the named suggest context,
// tolerating a missing context (browse mode) or empty entries.
func suggestOptions(resp *esSearchResponse, name string) []engine.SuggestionOption {
	entries, ok := resp.Suggest[name]
	if !ok || len(entries) == 0 {
		return nil
	}

	options := make([]engine.SuggestionOption, 0, len(entries[0].Options))
	for _, opt := range entries[0].Options {
		score := opt.Score
		if opt.HitScore != nil {
			score = *opt.HitScore
		}
		options = append(options, engine.SuggestionOption{
			Text:    opt.Text,
			Score:   score,
			Product: opt.Source,
		})
	}
	return options
}

// esDocument is the indexed document shape: the product plus the completion
// field generated from its name and tags, weighted by stock so in-stock
// products surface first in autocomplete.
type esDocument struct {
	domain.Product
	NameSuggest nameSuggest `json:"name_suggest"`
}

type nameSuggest struct {
	Input  []string `json:"input"`
	Weight int      `json:"weight"`
}

func newDocument(p *domain.Product) esDocument {
	weight := p.StockQuantity
	if weight < 1 {
		weight = 1
	}
	input := append([]string{p.Name}, p.Tags...)
	return esDocument{
		Product:     *p,
		NameSuggest: nameSuggest{Input: input, Weight: weight},
	}
}

// Index adds or updates a single product in the Elasticsearch index.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(newDocument(product))
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(product.SKU),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch index: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch index: unexpected status %s", res.Status())
	}

	e.logger.Debug("indexed product", "sku", product.SKU, "name", product.Name)
	return nil
}

// Delete removes a product from the Elasticsearch index by its SKU.
// It does not return an error if the document does not exist (404 is ignored).
func (e *Engine) Delete(ctx context.Context, sku string) error {
	res, err := e.client.Delete(
		e.indexName,
		sku,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Ignore 404, the document might not exist.
	if res.IsError() && res.StatusCode != 404 {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch delete: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch delete: unexpected status %s", res.Status())
	}

	e.logger.Debug("deleted product", "sku", sku)
	return nil
}

// BulkIndex adds or updates multiple products in the Elasticsearch index
// using the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for i := range products {
		// Action line.
		action := map[string]any{
			"index": map[string]any{
				"_index": e.indexName,
				"_id":    products[i].SKU,
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}

		// Document line.
		if err := json.NewEncoder(&buf).Encode(newDocument(&products[i])); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch bulk index: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch bulk index: unexpected status %s", res.Status())
	}

	// Parse the bulk response to check for per-item errors.
	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("sku=%s: [%s] %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.Info("bulk indexed products", "count", len(products))
	return nil
}

// DeleteIndex removes the entire Elasticsearch index.
// It is intended for testing and administrative operations only.
// A 404 response is treated as success (index already absent).
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		var errResp esErrorResponse
		if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil {
			return fmt.Errorf("elasticsearch delete index: [%s] %s", errResp.Error.Type, errResp.Error.Reason)
		}
		return fmt.Errorf("elasticsearch delete index: unexpected status %s", res.Status())
	}

	e.logger.Info("elasticsearch index deleted", "index", e.indexName)
	return nil
}
