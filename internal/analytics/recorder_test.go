package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
	pkgkafka "github.com/utafrali/discovery/pkg/kafka"
)

type fakeStore struct {
	mu        sync.Mutex
	searches  []*repository.SearchEvent
	clicks    []*repository.ClickEvent
	insertErr error

	popularSince    time.Time
	popularMinCount int
	popularLimit    int
	popularTerms    []domain.PopularTerm

	wrote chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{wrote: make(chan struct{}, 16)}
}

func (f *fakeStore) InsertSearchEvent(_ context.Context, ev *repository.SearchEvent) error {
	defer func() { f.wrote <- struct{}{} }()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, ev)
	return nil
}

func (f *fakeStore) InsertClickEvent(_ context.Context, ev *repository.ClickEvent) error {
	defer func() { f.wrote <- struct{}{} }()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, ev)
	return nil
}

func (f *fakeStore) PopularTerms(_ context.Context, since time.Time, minCount, limit int) ([]domain.PopularTerm, error) {
	f.popularSince = since
	f.popularMinCount = minCount
	f.popularLimit = limit
	return f.popularTerms, nil
}

func (f *fakeStore) waitForWrite(t *testing.T) {
	t.Helper()
	select {
	case <-f.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background event write")
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordSearch_WritesEventInBackground(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil, discardLogger())

	r.RecordSearch("wireless headphones", 12, "user-1", "sess-1")
	store.waitForWrite(t)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.searches, 1)
	ev := store.searches[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "wireless headphones", ev.Query)
	assert.Equal(t, 12, ev.ResultCount)
	assert.Equal(t, "user-1", ev.UserID)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestRecordSearch_PublishesToBus(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	r := NewRecorder(store, pub, discardLogger())

	r.RecordSearch("laptop", 3, "", "sess-2")
	store.waitForWrite(t)

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{TopicSearchPerformed}, pub.topics)
	assert.Equal(t, TopicSearchPerformed, pub.events[0].EventType)
}

func TestRecordSearch_StoreFailureStillPublishes(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("insert failed")
	pub := &fakePublisher{}
	r := NewRecorder(store, pub, discardLogger())

	r.RecordSearch("laptop", 3, "", "")
	store.waitForWrite(t)

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.events) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecordClick_WritesEventInBackground(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil, discardLogger())

	r.RecordClick("p-1", "headphones", "user-1", "sess-1")
	store.waitForWrite(t)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.clicks, 1)
	ev := store.clicks[0]
	assert.Equal(t, "p-1", ev.ProductID)
	assert.Equal(t, "headphones", ev.Query)
	assert.Equal(t, "user-1", ev.UserID)
}

func TestPopularTerms_Defaults(t *testing.T) {
	store := newFakeStore()
	store.popularTerms = []domain.PopularTerm{{Term: "headphones", Count: 9}}
	r := NewRecorder(store, nil, discardLogger())

	got, err := r.PopularTerms(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "headphones", got[0].Term)

	assert.Equal(t, 2, store.popularMinCount)
	assert.Equal(t, 10, store.popularLimit)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), store.popularSince, time.Minute)
}

func TestPopularTerms_ExplicitWindow(t *testing.T) {
	store := newFakeStore()
	r := NewRecorder(store, nil, discardLogger())

	_, err := r.PopularTerms(context.Background(), 30, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, store.popularLimit)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -30), store.popularSince, time.Minute)
}
