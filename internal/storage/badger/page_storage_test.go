package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
)

func testStorage(t *testing.T) *PageStorage {
	t.Helper()
	logger := arbor.NewLogger()

	db, err := NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "pages"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPageStorage(db, logger)
}

func newPage(category models.Category, documentID, pageNumber int, text string) *models.PageRecord {
	return &models.PageRecord{
		DocumentID: documentID,
		Category:   category,
		PageNumber: pageNumber,
		RawText:    text,
	}
}

func TestSaveAndGetPage(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	page := newPage(models.CategoryFinance, 101, 1, "hello")
	page.ImageKeys = []string{"/images/101/101_1_Im0.png"}
	page.HasImage = true

	require.NoError(t, storage.SavePage(ctx, page))
	assert.False(t, page.CreatedAt.IsZero())
	assert.False(t, page.UpdatedAt.IsZero())

	loaded, err := storage.GetPage(ctx, models.CategoryFinance, 101, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.RawText)
	assert.Equal(t, page.ImageKeys, loaded.ImageKeys)
	assert.True(t, loaded.HasImage)

	_, err = storage.GetPage(ctx, models.CategoryFinance, 101, 2)
	assert.Error(t, err)
}

func TestSavePageValidatesIdentity(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	assert.Error(t, storage.SavePage(ctx, newPage(models.CategoryFinance, 0, 1, "x")))
	assert.Error(t, storage.SavePage(ctx, newPage(models.CategoryFinance, 101, 0, "x")))
}

func TestSavePageUpsertsSameIdentity(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SavePage(ctx, newPage(models.CategoryFinance, 101, 1, "first")))

	updated := newPage(models.CategoryFinance, 101, 1, "first")
	updated.GeneratedDescription = "vision description"
	require.NoError(t, storage.SavePage(ctx, updated))

	count, err := storage.CountPages(ctx, models.CategoryFinance)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "same identity must overwrite, not duplicate")

	loaded, err := storage.GetPage(ctx, models.CategoryFinance, 101, 1)
	require.NoError(t, err)
	assert.Equal(t, "vision description", loaded.GeneratedDescription)
}

func TestListByDocumentSorted(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SavePages(ctx, []*models.PageRecord{
		newPage(models.CategoryFinance, 101, 3, "c"),
		newPage(models.CategoryFinance, 101, 1, "a"),
		newPage(models.CategoryFinance, 101, 2, "b"),
		newPage(models.CategoryFinance, 205, 1, "other doc"),
		newPage(models.CategoryFAQ, 101, 1, "other category"),
	}))

	pages, err := storage.ListByDocument(ctx, models.CategoryFinance, 101)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for i, page := range pages {
		assert.Equal(t, i+1, page.PageNumber)
	}
}

func TestListNeedingEnrichment(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	short := newPage(models.CategoryInsurance, 101, 1, "short")
	short.HasImage = true
	short.ImageKeys = []string{"blob.png"}

	noImage := newPage(models.CategoryInsurance, 101, 2, "short")

	enriched := newPage(models.CategoryInsurance, 101, 3, "short")
	enriched.HasImage = true
	enriched.ImageKeys = []string{"blob.png"}
	enriched.GeneratedDescription = "already described"

	require.NoError(t, storage.SavePages(ctx, []*models.PageRecord{short, noImage, enriched}))

	needing, err := storage.ListNeedingEnrichment(ctx, models.CategoryInsurance, 200)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, 1, needing[0].PageNumber)
}

func TestCountsAndClear(t *testing.T) {
	storage := testStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.SavePages(ctx, []*models.PageRecord{
		newPage(models.CategoryFinance, 101, 1, "a"),
		newPage(models.CategoryFinance, 101, 2, "b"),
		newPage(models.CategoryFinance, 205, 1, "c"),
		newPage(models.CategoryFAQ, 309, 1, "d"),
	}))

	pages, err := storage.CountPages(ctx, models.CategoryFinance)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	docs, err := storage.CountDocuments(ctx, models.CategoryFinance)
	require.NoError(t, err)
	assert.Equal(t, 2, docs)

	require.NoError(t, storage.ClearCategory(ctx, models.CategoryFinance))

	pages, err = storage.CountPages(ctx, models.CategoryFinance)
	require.NoError(t, err)
	assert.Zero(t, pages)

	// Other categories are untouched
	pages, err = storage.CountPages(ctx, models.CategoryFAQ)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}
