package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/utafrali/catalogsearch/pkg/kafka"

	"github.com/utafrali/catalogsearch/internal/domain"
	"github.com/utafrali/catalogsearch/internal/service"
)

// Kafka topic constants for product domain events consumed by the indexer.
const (
	TopicProductCreated = "catalog.product.created"
	TopicProductUpdated = "catalog.product.updated"
	TopicProductDeleted = "catalog.product.deleted"
)

// ProductEventData represents the payload from product domain events.
type ProductEventData struct {
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	Slug          string         `json:"slug"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Status        string         `json:"status"`
	Price         float64        `json:"price"`
	StockQuantity int            `json:"stock_quantity"`
	Tags          []string       `json:"tags"`
	Attributes    map[string]any `json:"attributes"`
	Location      *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	SKU string `json:"sku"`
}

func (d *ProductEventData) toProduct() domain.Product {
	p := domain.Product{
		SKU:           d.SKU,
		Name:          d.Name,
		Slug:          d.Slug,
		Description:   d.Description,
		Category:      d.Category,
		Status:        d.Status,
		Price:         d.Price,
		StockQuantity: d.StockQuantity,
		Tags:          d.Tags,
		Attributes:    domain.FlattenAttributes(d.Attributes),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Location != nil {
		p.Location = &domain.GeoPoint{Lat: d.Location.Lat, Lon: d.Location.Lon}
	}
	return p
}

// Consumer handles Kafka events related to product changes for search indexing.
type Consumer struct {
	searchService *service.SearchService
	logger        *slog.Logger
}

// NewConsumer creates a new event consumer for the search indexer.
func NewConsumer(searchService *service.SearchService, logger *slog.Logger) *Consumer {
	return &Consumer{
		searchService: searchService,
		logger:        logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpserted(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpserted indexes a created or updated product.
func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	product := data.toProduct()
	if err := c.searchService.IndexProduct(ctx, &product); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.String("event_type", event.EventType),
		slog.String("sku", data.SKU),
	)

	return nil
}

// handleProductDeleted removes a deleted product from the index.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.searchService.DeleteProduct(ctx, data.SKU); err != nil {
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from event",
		slog.String("sku", data.SKU),
	)

	return nil
}
