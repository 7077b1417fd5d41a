package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/discovery/pkg/kafka"
)

// Kafka topics for catalog domain events the discovery service consumes.
const (
	TopicProductCreated      = "ecommerce.product.created"
	TopicProductUpdated      = "ecommerce.product.updated"
	TopicProductStockChanged = "ecommerce.product.stock_changed"
	TopicProductDeleted      = "ecommerce.product.deleted"
)

// ProductEventData carries the product reference from a catalog event. The
// indexer re-reads the product from the catalog, so the ID is the only field
// that matters; everything else in the payload is ignored.
type ProductEventData struct {
	ID string `json:"id"`
}

// Synchronizer converges the search index on the catalog state for one
// product. Satisfied by indexer.Indexer.
type Synchronizer interface {
	Upsert(ctx context.Context, productID string) error
	Remove(ctx context.Context, productID string) error
}

// Consumer applies catalog change events to the search index.
type Consumer struct {
	indexer Synchronizer
	logger  *slog.Logger
}

// NewConsumer creates a consumer that keeps the index in sync with the
// catalog.
func NewConsumer(ix Synchronizer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: ix,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type. Created, updated, and
// stock change events all converge through Upsert, which re-projects the
// product from the catalog and removes it when it turned inactive.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated, TopicProductStockChanged:
		return c.handleProductChanged(ctx, event)
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

func (c *Consumer) handleProductChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	if err := c.indexer.Upsert(ctx, data.ID); err != nil {
		return fmt.Errorf("upsert product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "index updated from catalog event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.ID),
	)

	return nil
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}

	if err := c.indexer.Remove(ctx, data.ID); err != nil {
		return fmt.Errorf("remove product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "product removed from index after deletion",
		slog.String("product_id", data.ID),
	)

	return nil
}
