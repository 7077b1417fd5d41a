package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
	pkgkafka "github.com/utafrali/discovery/pkg/kafka"
)

// Kafka topics for discovery analytics events.
const (
	TopicSearchPerformed = "ecommerce.search.performed"
	TopicProductClicked  = "ecommerce.product.clicked"
)

// writeTimeout bounds each background event write so a slow store cannot pile
// up goroutines.
const writeTimeout = 5 * time.Second

// Publisher publishes analytics events to the event bus. Satisfied by
// pkg/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Recorder appends search and click events for later popularity computation.
// Recording is fire-and-forget: failures are logged and never block or fail
// the read path.
type Recorder struct {
	store     repository.AnalyticsStore
	publisher Publisher
	logger    *slog.Logger
}

// NewRecorder creates an analytics recorder. publisher may be nil when no
// event bus is configured.
func NewRecorder(store repository.AnalyticsStore, publisher Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// RecordSearch appends one search event in the background.
func (r *Recorder) RecordSearch(query string, resultCount int, userID, sessionID string) {
	ev := &repository.SearchEvent{
		ID:          uuid.New().String(),
		Query:       query,
		ResultCount: resultCount,
		UserID:      userID,
		SessionID:   sessionID,
		CreatedAt:   time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.store.InsertSearchEvent(ctx, ev); err != nil {
			r.logger.Warn("record search event failed",
				slog.String("query", query),
				slog.String("error", err.Error()),
			)
		}
		r.publish(ctx, TopicSearchPerformed, ev.ID, map[string]any{
			"query":        ev.Query,
			"result_count": ev.ResultCount,
			"user_id":      ev.UserID,
			"session_id":   ev.SessionID,
		})
	}()
}

// RecordClick appends one click event in the background.
func (r *Recorder) RecordClick(productID, query, userID, sessionID string) {
	ev := &repository.ClickEvent{
		ID:        uuid.New().String(),
		ProductID: productID,
		Query:     query,
		UserID:    userID,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := r.store.InsertClickEvent(ctx, ev); err != nil {
			r.logger.Warn("record click event failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
		r.publish(ctx, TopicProductClicked, ev.ID, map[string]any{
			"product_id": ev.ProductID,
			"query":      ev.Query,
			"user_id":    ev.UserID,
			"session_id": ev.SessionID,
		})
	}()
}

// PopularTerms aggregates recorded search events over the given number of
// days. Terms must have produced results and occurred at least twice.
func (r *Recorder) PopularTerms(ctx context.Context, days, limit int) ([]domain.PopularTerm, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return r.store.PopularTerms(ctx, since, 2, limit)
}

// publish sends the analytics event to the bus when one is configured.
func (r *Recorder) publish(ctx context.Context, topic, aggregateID string, data map[string]any) {
	if r.publisher == nil {
		return
	}

	ev, err := pkgkafka.NewEvent(topic, aggregateID, "analytics_event", "discovery", data)
	if err != nil {
		r.logger.Warn("build analytics event failed", slog.String("error", err.Error()))
		return
	}
	if err := r.publisher.Publish(ctx, topic, ev); err != nil {
		r.logger.Warn("publish analytics event failed",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
	}
}
