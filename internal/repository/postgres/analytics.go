package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/discovery/pkg/database"
	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

// AnalyticsRepository implements repository.AnalyticsStore using PostgreSQL.
type AnalyticsRepository struct {
	pool database.DBTX
}

// NewAnalyticsRepository creates a new PostgreSQL-backed analytics store.
func NewAnalyticsRepository(pool database.DBTX) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// InsertSearchEvent appends one search event.
func (r *AnalyticsRepository) InsertSearchEvent(ctx context.Context, ev *repository.SearchEvent) error {
	query := `
		INSERT INTO search_events (id, query, result_count, user_id, session_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	_, err := r.pool.Exec(ctx, query, ev.ID, ev.Query, ev.ResultCount, ev.UserID, ev.SessionID, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search event: %w", err)
	}
	return nil
}

// InsertClickEvent appends one click event.
func (r *AnalyticsRepository) InsertClickEvent(ctx context.Context, ev *repository.ClickEvent) error {
	query := `
		INSERT INTO click_events (id, product_id, query, user_id, session_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	_, err := r.pool.Exec(ctx, query, ev.ID, ev.ProductID, ev.Query, ev.UserID, ev.SessionID, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert click event: %w", err)
	}
	return nil
}

// PopularTerms aggregates search events since the given time by literal query
// text. Only queries that produced results count, and a term must have been
// seen at least minCount times.
func (r *AnalyticsRepository) PopularTerms(ctx context.Context, since time.Time, minCount, limit int) ([]domain.PopularTerm, error) {
	query := `
		SELECT query, COUNT(*) AS cnt
		FROM search_events
		WHERE created_at >= $1 AND result_count > 0 AND query <> ''
		GROUP BY query
		HAVING COUNT(*) >= $2
		ORDER BY cnt DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, since, minCount, limit)
	if err != nil {
		return nil, fmt.Errorf("popular terms: %w", err)
	}
	defer rows.Close()

	terms := []domain.PopularTerm{}
	for rows.Next() {
		var t domain.PopularTerm
		if err := rows.Scan(&t.Term, &t.Count); err != nil {
			return nil, fmt.Errorf("scan popular term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
