package engine

import (
	"context"

	"github.com/utafrali/discovery/internal/domain"
)

// SearchEngine defines the interface for indexing and searching product
// documents. Implementations may use Elasticsearch or in-memory storage.
type SearchEngine interface {
	// Index adds or updates a single document in the search index.
	Index(ctx context.Context, doc *domain.SearchDocument) error

	// Delete removes a document from the search index by its ID. Removing a
	// nonexistent document is not an error.
	Delete(ctx context.Context, id string) error

	// Search executes a search query and returns matching documents.
	Search(ctx context.Context, query *domain.SearchQuery) (*domain.SearchResult, error)

	// BulkIndex adds or updates multiple documents. Partial failures are
	// reported per item by the implementation and do not abort the batch.
	BulkIndex(ctx context.Context, docs []domain.SearchDocument) error

	// Suggest returns prefix completions derived from product names.
	Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error)
}
