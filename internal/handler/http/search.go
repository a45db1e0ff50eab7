package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogsearch/pkg/httputil"
	"github.com/utafrali/catalogsearch/pkg/validator"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
)

// attrParamPrefix marks query parameters that filter on nested product
// attributes, e.g. attr_color=Black.
const attrParamPrefix = "attr_"

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// IndexProductRequest is the JSON request body for indexing a product.
type IndexProductRequest struct {
	SKU           string         `json:"sku" validate:"required"`
	Name          string         `json:"name" validate:"required,min=1"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Status        string         `json:"status"`
	Price         float64        `json:"price" validate:"gte=0"`
	StockQuantity int            `json:"stock_quantity" validate:"gte=0"`
	Tags          []string       `json:"tags"`
	Attributes    map[string]any `json:"attributes"`
	Location      *LocationDTO   `json:"location"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// LocationDTO is a latitude/longitude pair.
type LocationDTO struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// BulkIndexRequest is the JSON request body for bulk indexing products.
type BulkIndexRequest struct {
	Products []IndexProductRequest `json:"products" validate:"required,min=1,max=500,dive"`
}

func (req *IndexProductRequest) toProduct() domain.Product {
	p := domain.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   req.Description,
		Category:      req.Category,
		Status:        req.Status,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Tags:          req.Tags,
		Attributes:    domain.FlattenAttributes(req.Attributes),
		CreatedAt:     req.CreatedAt,
		UpdatedAt:     req.UpdatedAt,
	}
	if req.Location != nil {
		p.Location = &domain.GeoPoint{Lat: req.Location.Lat, Lon: req.Location.Lon}
	}
	return p
}

// --- Handlers ---

// parseSearchRequest maps query parameters onto a search request. Numeric and
// geographic parameters are carried as raw strings; values that fail to parse
// are dropped by the filter builder rather than rejected here.
func parseSearchRequest(r *http.Request) *domain.SearchRequest {
	params := r.URL.Query()

	req := &domain.SearchRequest{
		Query:      strings.TrimSpace(params.Get("q")),
		Categories: params["category"],
		Tags:       params["tag"],
		Status:     params.Get("status"),
		MinPrice:   params.Get("min_price"),
		MaxPrice:   params.Get("max_price"),
		InStock:    params.Get("in_stock") != "false",
		Lat:        params.Get("lat"),
		Lon:        params.Get("lon"),
		Distance:   params.Get("distance"),
		SortBy:     params.Get("sort"),
	}

	if v := params.Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil {
			req.Page = page
		}
	}
	if v := params.Get("size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			req.Size = size
		}
	}

	for key, values := range params {
		name := strings.TrimPrefix(key, attrParamPrefix)
		if name == key || name == "" || len(values) == 0 {
			continue
		}
		if req.Attributes == nil {
			req.Attributes = make(map[string][]string)
		}
		req.Attributes[name] = values
	}

	return req
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req := parseSearchRequest(r)

	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Autocomplete handles GET /api/v1/search/autocomplete
func (h *SearchHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	prefix := strings.TrimSpace(r.URL.Query().Get("q"))

	completions, err := h.service.Autocomplete(r.Context(), prefix)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": completions}})
}

// Suggest handles GET /api/v1/search/suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))

	corrections, err := h.service.Suggest(r.Context(), text)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"suggestions": corrections}})
}

// IndexProduct handles POST /api/v1/search/index
func (h *SearchHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req IndexProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product := req.toProduct()
	if err := h.service.IndexProduct(r.Context(), &product); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"sku": req.SKU, "status": "indexed"}})
}

// BulkIndex handles POST /api/v1/search/bulk
func (h *SearchHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10MB limit for bulk endpoint

	var req BulkIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	products := make([]domain.Product, 0, len(req.Products))
	for i := range req.Products {
		products = append(products, req.Products[i].toProduct())
	}

	if err := h.service.BulkIndexProducts(r.Context(), products); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{"indexed": len(products), "status": "ok"}})
}

// DeleteProduct handles DELETE /api/v1/search/{sku}
func (h *SearchHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sku := chi.URLParam(r, "sku")

	if err := h.service.DeleteProduct(r.Context(), sku); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"sku": sku, "status": "deleted"}})
}

// Reindex handles POST /api/v1/search/reindex
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx := context.Background()
		count, err := h.service.Reindex(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed", "error", err, "indexed", count)
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}
