package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// PageStorage implements the PageStorage interface for Badger. Page records
// are keyed by category/document/page so each pipeline stage can re-read and
// upsert the same identity.
type PageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.PageStorage = (*PageStorage)(nil)

// NewPageStorage creates a new PageStorage instance
func NewPageStorage(db *BadgerDB, logger arbor.ILogger) *PageStorage {
	return &PageStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PageStorage) SavePage(ctx context.Context, page *models.PageRecord) error {
	if page.DocumentID <= 0 {
		return fmt.Errorf("page record document ID is required")
	}
	if page.PageNumber <= 0 {
		return fmt.Errorf("page record page number is required")
	}

	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	if err := s.db.Store().Upsert(page.Key(), page); err != nil {
		return fmt.Errorf("failed to save page record: %w", err)
	}
	return nil
}

func (s *PageStorage) SavePages(ctx context.Context, pages []*models.PageRecord) error {
	for _, page := range pages {
		if err := s.SavePage(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

func (s *PageStorage) GetPage(ctx context.Context, category models.Category, documentID, pageNumber int) (*models.PageRecord, error) {
	var page models.PageRecord
	key := models.PageKey(category, documentID, pageNumber)
	if err := s.db.Store().Get(key, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("page record not found: %s", key)
		}
		return nil, fmt.Errorf("failed to get page record: %w", err)
	}
	return &page, nil
}

func (s *PageStorage) ListByDocument(ctx context.Context, category models.Category, documentID int) ([]*models.PageRecord, error) {
	var pages []models.PageRecord
	err := s.db.Store().Find(&pages,
		badgerhold.Where("Category").Eq(category).And("DocumentID").Eq(documentID))
	if err != nil {
		return nil, fmt.Errorf("failed to list pages for document %d: %w", documentID, err)
	}

	result := toPointers(pages)
	sort.Slice(result, func(i, j int) bool {
		return result[i].PageNumber < result[j].PageNumber
	})
	return result, nil
}

func (s *PageStorage) ListByCategory(ctx context.Context, category models.Category) ([]*models.PageRecord, error) {
	var pages []models.PageRecord
	if err := s.db.Store().Find(&pages, badgerhold.Where("Category").Eq(category)); err != nil {
		return nil, fmt.Errorf("failed to list pages for category %s: %w", category, err)
	}
	return toPointers(pages), nil
}

// ListNeedingEnrichment returns the pages the enricher should send to the
// vision model: flagged with image content, no description yet, and raw
// text shorter than the configured minimum.
func (s *PageStorage) ListNeedingEnrichment(ctx context.Context, category models.Category, minTextLength int) ([]*models.PageRecord, error) {
	all, err := s.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	needing := make([]*models.PageRecord, 0)
	for _, page := range all {
		if page.NeedsEnrichment(minTextLength) {
			needing = append(needing, page)
		}
	}
	return needing, nil
}

func (s *PageStorage) CountPages(ctx context.Context, category models.Category) (int, error) {
	count, err := s.db.Store().Count(&models.PageRecord{}, badgerhold.Where("Category").Eq(category))
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return int(count), nil
}

func (s *PageStorage) CountDocuments(ctx context.Context, category models.Category) (int, error) {
	pages, err := s.ListByCategory(ctx, category)
	if err != nil {
		return 0, err
	}
	seen := make(map[int]struct{})
	for _, page := range pages {
		seen[page.DocumentID] = struct{}{}
	}
	return len(seen), nil
}

func (s *PageStorage) ClearCategory(ctx context.Context, category models.Category) error {
	if err := s.db.Store().DeleteMatching(&models.PageRecord{}, badgerhold.Where("Category").Eq(category)); err != nil {
		return fmt.Errorf("failed to clear category %s: %w", category, err)
	}
	return nil
}

func toPointers(pages []models.PageRecord) []*models.PageRecord {
	result := make([]*models.PageRecord, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result
}
