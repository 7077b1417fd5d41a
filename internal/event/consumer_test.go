package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/discovery/pkg/kafka"
)

type fakeSynchronizer struct {
	upserts []string
	removes []string
	err     error
}

func (f *fakeSynchronizer) Upsert(_ context.Context, productID string) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, productID)
	return nil
}

func (f *fakeSynchronizer) Remove(_ context.Context, productID string) error {
	if f.err != nil {
		return f.err
	}
	f.removes = append(f.removes, productID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func productEvent(t *testing.T, eventType, productID string) *pkgkafka.Event {
	t.Helper()
	data, err := json.Marshal(ProductEventData{ID: productID})
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:   "evt-1",
		EventType: eventType,
		Data:      data,
	}
}

func TestHandle_ChangeEventsConvergeThroughUpsert(t *testing.T) {
	for _, eventType := range []string{TopicProductCreated, TopicProductUpdated, TopicProductStockChanged} {
		t.Run(eventType, func(t *testing.T) {
			sync := &fakeSynchronizer{}
			c := NewConsumer(sync, discardLogger())

			err := c.Handle(context.Background(), productEvent(t, eventType, "p-1"))
			require.NoError(t, err)

			assert.Equal(t, []string{"p-1"}, sync.upserts)
			assert.Empty(t, sync.removes)
		})
	}
}

func TestHandle_DeletedEventRemoves(t *testing.T) {
	sync := &fakeSynchronizer{}
	c := NewConsumer(sync, discardLogger())

	err := c.Handle(context.Background(), productEvent(t, TopicProductDeleted, "p-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"p-1"}, sync.removes)
	assert.Empty(t, sync.upserts)
}

func TestHandle_UnknownEventType_Ignored(t *testing.T) {
	sync := &fakeSynchronizer{}
	c := NewConsumer(sync, discardLogger())

	err := c.Handle(context.Background(), &pkgkafka.Event{
		EventID:   "evt-2",
		EventType: "ecommerce.order.created",
		Data:      json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	assert.Empty(t, sync.upserts)
	assert.Empty(t, sync.removes)
}

func TestHandle_MalformedPayload_Errors(t *testing.T) {
	c := NewConsumer(&fakeSynchronizer{}, discardLogger())

	err := c.Handle(context.Background(), &pkgkafka.Event{
		EventID:   "evt-3",
		EventType: TopicProductUpdated,
		Data:      json.RawMessage(`{not json`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestHandle_IndexerFailurePropagates(t *testing.T) {
	sync := &fakeSynchronizer{err: errors.New("engine unavailable")}
	c := NewConsumer(sync, discardLogger())

	err := c.Handle(context.Background(), productEvent(t, TopicProductCreated, "p-1"))
	require.Error(t, err)

	err = c.Handle(context.Background(), productEvent(t, TopicProductDeleted, "p-1"))
	require.Error(t, err)
}
