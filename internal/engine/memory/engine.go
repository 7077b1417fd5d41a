package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/discovery/internal/domain"
)

// Engine is an in-memory implementation of the SearchEngine interface. It
// provides simple substring matching on name and description fields and is
// used for local development and as the engine test double. Thread-safe via
// sync.RWMutex.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.SearchDocument
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs: make(map[string]domain.SearchDocument),
	}
}

// Index adds or updates a single document.
func (e *Engine) Index(_ context.Context, doc *domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

// Delete removes a document by ID. Deleting a missing document is a no-op.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.docs)
}

// Has reports whether a document with the given ID is indexed.
func (e *Engine) Has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.docs[id]
	return ok
}

// Search executes a search query against the in-memory index.
func (e *Engine) Search(_ context.Context, query *domain.SearchQuery) (*domain.SearchResult, error) {
	start := time.Now()
	query.Normalize()

	e.mu.RLock()
	defer e.mu.RUnlock()

	queryLower := strings.ToLower(query.Query)

	matched := make([]domain.SearchDocument, 0)
	for _, d := range e.docs {
		if e.matches(d, query, queryLower) {
			matched = append(matched, d)
		}
	}

	e.sortDocs(matched, query.SortBy)

	total := len(matched)
	offset := (query.Page - 1) * query.PerPage
	if offset > total {
		offset = total
	}
	end := offset + query.PerPage
	if end > total {
		end = total
	}

	return &domain.SearchResult{
		Products: matched[offset:end],
		Total:    total,
		Page:     query.Page,
		PerPage:  query.PerPage,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// BulkIndex adds or updates multiple documents.
func (e *Engine) BulkIndex(_ context.Context, docs []domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil
}

// Suggest returns product names starting with the given prefix.
func (e *Engine) Suggest(_ context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	prefixLower := strings.ToLower(prefix)

	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]struct{})
	suggestions := make([]domain.Suggestion, 0)
	for _, d := range e.docs {
		nameLower := strings.ToLower(d.Name)
		if !strings.HasPrefix(nameLower, prefixLower) && !wordHasPrefix(nameLower, prefixLower) {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		suggestions = append(suggestions, domain.Suggestion{Text: d.Name, Score: d.Popularity})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Text < suggestions[j].Text
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// matches checks whether a document matches the query's text and filters.
func (e *Engine) matches(d domain.SearchDocument, query *domain.SearchQuery, queryLower string) bool {
	if queryLower != "" {
		nameLower := strings.ToLower(d.Name)
		descLower := strings.ToLower(d.Description)
		if !strings.Contains(nameLower, queryLower) && !strings.Contains(descLower, queryLower) {
			return false
		}
	}

	if query.CategoryID != nil && *query.CategoryID != "" && d.CategoryID != *query.CategoryID {
		return false
	}
	if query.MinPrice != nil && d.Price < *query.MinPrice {
		return false
	}
	if query.MaxPrice != nil && d.Price > *query.MaxPrice {
		return false
	}

	return true
}

// sortDocs orders documents according to the sort mode. Relevance has no
// meaningful score in memory, so it falls back to popularity.
func (e *Engine) sortDocs(docs []domain.SearchDocument, sortBy string) {
	sort.SliceStable(docs, func(i, j int) bool {
		switch sortBy {
		case domain.SortPriceAsc:
			return docs[i].Price < docs[j].Price
		case domain.SortPriceDesc:
			return docs[i].Price > docs[j].Price
		case domain.SortNewest:
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		case domain.SortRating:
			if docs[i].RatingAvg != docs[j].RatingAvg {
				return docs[i].RatingAvg > docs[j].RatingAvg
			}
			return docs[i].RatingCount > docs[j].RatingCount
		default:
			// relevance and popularity
			if docs[i].Popularity != docs[j].Popularity {
				return docs[i].Popularity > docs[j].Popularity
			}
			return docs[i].ID < docs[j].ID
		}
	})
}

func wordHasPrefix(name, prefix string) bool {
	for _, w := range strings.Fields(name) {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}
