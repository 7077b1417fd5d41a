package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/discovery/internal/cache"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/engine"
	"github.com/utafrali/discovery/internal/repository"
	apperrors "github.com/utafrali/discovery/pkg/errors"
)

// breakerState reports the search-index circuit breaker state
// (0 closed, 1 half-open, 2 open).
var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "search_breaker_state",
		Help: "Circuit breaker state for the search index (0 closed, 1 half-open, 2 open)",
	},
	[]string{"breaker"},
)

// minSuggestRunes is the shortest prefix the suggester answers.
const minSuggestRunes = 2

// defaultEngineTimeout bounds a single search-index round-trip.
const defaultEngineTimeout = 30 * time.Second

// Recorder is the slice of the analytics recorder the query engine needs.
type Recorder interface {
	RecordSearch(query string, resultCount int, userID, sessionID string)
	PopularTerms(ctx context.Context, days, limit int) ([]domain.PopularTerm, error)
}

// Service is the query engine: it resolves a search query against the search
// index, transparently degrading to the relational catalog when the index is
// unavailable.
type Service struct {
	engine   engine.SearchEngine
	store    repository.CatalogStore
	cache    cache.Cache
	recorder Recorder
	breaker  *gobreaker.CircuitBreaker[*domain.SearchResult]
	logger   *slog.Logger
	timeout  time.Duration
}

// NewService creates a query engine service. The circuit breaker wraps every
// index round-trip so a flapping index trips straight to the fallback path
// instead of eating the full timeout on every request.
func NewService(
	eng engine.SearchEngine,
	store repository.CatalogStore,
	c cache.Cache,
	recorder Recorder,
	logger *slog.Logger,
) *Service {
	settings := gobreaker.Settings{
		Name:     "search-index",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Service{
		engine:   eng,
		store:    store,
		cache:    c,
		recorder: recorder,
		breaker:  gobreaker.NewCircuitBreaker[*domain.SearchResult](settings),
		logger:   logger,
		timeout:  defaultEngineTimeout,
	}
}

// Search resolves a query into a ranked result set. The index path is
// preferred; on any index error the relational fallback produces an
// equivalent result marked Fallback=true. Only the fallback failing too is a
// fatal error. Every invocation emits one analytics event.
func (s *Service) Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	q.Normalize()

	key := searchKey(q)

	var cached domain.SearchResult
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
	} else if hit {
		s.recorder.RecordSearch(q.Query, cached.Total, q.UserID, q.SessionID)
		return &cached, nil
	}

	result, err := s.searchIndex(ctx, q)
	if err != nil {
		s.logger.WarnContext(ctx, "search index unavailable, falling back to catalog",
			slog.String("query", q.Query),
			slog.String("error", err.Error()),
		)

		result, err = s.searchFallback(ctx, q)
		if err != nil {
			return nil, apperrors.ServiceUnavailable("search is temporarily unavailable", err)
		}
	} else if err := s.cache.Set(ctx, key, result, cache.SearchTTL); err != nil {
		s.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
	}

	s.recorder.RecordSearch(q.Query, result.Total, q.UserID, q.SessionID)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", q.Query),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
		slog.Bool("fallback", result.Fallback),
	)

	return result, nil
}

// searchIndex runs the query against the search index through the circuit
// breaker with a bounded timeout.
func (s *Service) searchIndex(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	return s.breaker.Execute(func() (*domain.SearchResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.engine.Search(callCtx, q)
	})
}

// searchFallback runs the equivalent relational query: same filters, same
// pagination, ILIKE predicate instead of full-text scoring.
func (s *Service) searchFallback(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	start := time.Now()

	docs, total, err := s.store.SearchProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResult{
		Products: docs,
		Total:    total,
		Page:     q.Page,
		PerPage:  q.PerPage,
		TookMs:   time.Since(start).Milliseconds(),
		Fallback: true,
	}, nil
}

// Suggest returns prefix completions. Prefixes shorter than two runes are
// ignored, and an index failure yields an empty list rather than an error.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	if utf8.RuneCountInString(prefix) < minSuggestRunes {
		return []domain.Suggestion{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	suggestions, err := s.engine.Suggest(callCtx, prefix, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "suggest failed, returning empty",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		return []domain.Suggestion{}, nil
	}

	return suggestions, nil
}

// PopularTerms reports the most frequent successful search terms over the
// given number of days.
func (s *Service) PopularTerms(ctx context.Context, days, limit int) ([]domain.PopularTerm, error) {
	terms, err := s.recorder.PopularTerms(ctx, days, limit)
	if err != nil {
		return nil, fmt.Errorf("popular terms: %w", err)
	}
	return terms, nil
}

// searchKey builds the deterministic cache key for a normalized query.
func searchKey(q *domain.SearchQuery) string {
	params := []string{
		"q=" + q.Query,
		fmt.Sprintf("page=%d", q.Page),
		fmt.Sprintf("per=%d", q.PerPage),
		"sort=" + q.SortBy,
	}
	if q.CategoryID != nil {
		params = append(params, "cat="+*q.CategoryID)
	}
	if q.MinPrice != nil {
		params = append(params, fmt.Sprintf("min=%d", *q.MinPrice))
	}
	if q.MaxPrice != nil {
		params = append(params, fmt.Sprintf("max=%d", *q.MaxPrice))
	}
	return cache.Key(cache.SearchPrefix, params...)
}
