package interfaces

import (
	"context"

	"github.com/ternarybob/reperio/internal/models"
)

// PageStorage - interface for staged page record persistence between
// pipeline stages
type PageStorage interface {
	// Single record operations
	SavePage(ctx context.Context, page *models.PageRecord) error
	SavePages(ctx context.Context, pages []*models.PageRecord) error
	GetPage(ctx context.Context, category models.Category, documentID, pageNumber int) (*models.PageRecord, error)

	// Listing operations
	ListByDocument(ctx context.Context, category models.Category, documentID int) ([]*models.PageRecord, error)
	ListByCategory(ctx context.Context, category models.Category) ([]*models.PageRecord, error)
	ListNeedingEnrichment(ctx context.Context, category models.Category, minTextLength int) ([]*models.PageRecord, error)

	// Counts
	CountPages(ctx context.Context, category models.Category) (int, error)
	CountDocuments(ctx context.Context, category models.Category) (int, error)

	// Bulk operations
	ClearCategory(ctx context.Context, category models.Category) error
}
