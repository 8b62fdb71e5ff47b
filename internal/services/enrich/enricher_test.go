package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/audit"
	"github.com/ternarybob/reperio/internal/services/llm"
)

// memoryPages is a minimal in-memory PageStorage for enrichment tests
type memoryPages struct {
	pages map[string]*models.PageRecord
}

func newMemoryPages() *memoryPages {
	return &memoryPages{pages: make(map[string]*models.PageRecord)}
}

func (m *memoryPages) SavePage(_ context.Context, page *models.PageRecord) error {
	copied := *page
	m.pages[page.Key()] = &copied
	return nil
}

func (m *memoryPages) SavePages(ctx context.Context, pages []*models.PageRecord) error {
	for _, p := range pages {
		if err := m.SavePage(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryPages) GetPage(_ context.Context, category models.Category, documentID, pageNumber int) (*models.PageRecord, error) {
	page, ok := m.pages[models.PageKey(category, documentID, pageNumber)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return page, nil
}

func (m *memoryPages) ListByDocument(context.Context, models.Category, int) ([]*models.PageRecord, error) {
	return nil, nil
}

func (m *memoryPages) ListByCategory(_ context.Context, category models.Category) ([]*models.PageRecord, error) {
	var out []*models.PageRecord
	for _, p := range m.pages {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryPages) ListNeedingEnrichment(ctx context.Context, category models.Category, minTextLength int) ([]*models.PageRecord, error) {
	all, err := m.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	var out []*models.PageRecord
	for _, p := range all {
		if p.NeedsEnrichment(minTextLength) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryPages) CountPages(context.Context, models.Category) (int, error)     { return 0, nil }
func (m *memoryPages) CountDocuments(context.Context, models.Category) (int, error) { return 0, nil }
func (m *memoryPages) ClearCategory(context.Context, models.Category) error         { return nil }

// failingProvider always errors, exercising the exhaustion path
type failingProvider struct{}

func (failingProvider) GenerateContent(context.Context, *llm.ContentRequest) (*llm.ContentResponse, error) {
	return nil, fmt.Errorf("simulated provider outage")
}
func (failingProvider) GetProviderType() llm.ProviderType { return "failing" }
func (failingProvider) Close() error                      { return nil }

func stagePage(t *testing.T, store *memoryPages, imageDir string, pageNumber int) *models.PageRecord {
	t.Helper()

	blob := filepath.Join(imageDir, fmt.Sprintf("101_%d_Im0.png", pageNumber))
	require.NoError(t, os.WriteFile(blob, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	page := &models.PageRecord{
		DocumentID: 101,
		Category:   models.CategoryInsurance,
		PageNumber: pageNumber,
		RawText:    "short scan text",
		HasImage:   true,
		ImageKeys:  []string{blob},
	}
	require.NoError(t, store.SavePage(context.Background(), page))
	return page
}

func testRecorder(t *testing.T) *audit.Recorder {
	t.Helper()
	recorder, err := audit.NewRecorder(filepath.Join(t.TempDir(), "error_log.txt"), arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { recorder.Close() })
	return recorder
}

func TestEnrichCategoryAttachesDescriptions(t *testing.T) {
	logger := arbor.NewLogger()
	store := newMemoryPages()
	imageDir := t.TempDir()

	stagePage(t, store, imageDir, 1)
	stagePage(t, store, imageDir, 2)

	enricher := NewEnricher(llm.NewOfflineProvider(logger), store, testRecorder(t), 4, 1, "", logger)

	result, err := enricher.EnrichCategory(context.Background(), models.CategoryInsurance, 200)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PagesSelected)
	assert.Equal(t, 2, result.PagesEnriched)
	assert.Zero(t, result.PagesFailed)

	for _, pageNumber := range []int{1, 2} {
		saved, err := store.GetPage(context.Background(), models.CategoryInsurance, 101, pageNumber)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.GeneratedDescription)
	}
}

func TestEnrichCategorySkipsPagesNotNeedingIt(t *testing.T) {
	logger := arbor.NewLogger()
	store := newMemoryPages()

	// Text-only page, never selected
	require.NoError(t, store.SavePage(context.Background(), &models.PageRecord{
		DocumentID: 101,
		Category:   models.CategoryInsurance,
		PageNumber: 1,
		RawText:    "plain text page",
	}))

	enricher := NewEnricher(llm.NewOfflineProvider(logger), store, testRecorder(t), 4, 1, "", logger)

	result, err := enricher.EnrichCategory(context.Background(), models.CategoryInsurance, 200)
	require.NoError(t, err)
	assert.Zero(t, result.PagesSelected)
}

func TestEnrichCategoryFailureLeavesPageUntouched(t *testing.T) {
	logger := arbor.NewLogger()
	store := newMemoryPages()
	imageDir := t.TempDir()
	recorder := testRecorder(t)

	stagePage(t, store, imageDir, 1)

	enricher := NewEnricher(failingProvider{}, store, recorder, 4, 1, "", logger)

	result, err := enricher.EnrichCategory(context.Background(), models.CategoryInsurance, 200)
	require.NoError(t, err, "a failed page must not abort the batch")

	assert.Equal(t, 1, result.PagesSelected)
	assert.Zero(t, result.PagesEnriched)
	assert.Equal(t, 1, result.PagesFailed)
	assert.Equal(t, int64(1), recorder.Count())

	saved, err := store.GetPage(context.Background(), models.CategoryInsurance, 101, 1)
	require.NoError(t, err)
	assert.Empty(t, saved.GeneratedDescription)
}

func TestEnrichCategoryMissingBlobIsRecorded(t *testing.T) {
	logger := arbor.NewLogger()
	store := newMemoryPages()
	recorder := testRecorder(t)

	require.NoError(t, store.SavePage(context.Background(), &models.PageRecord{
		DocumentID: 101,
		Category:   models.CategoryInsurance,
		PageNumber: 1,
		RawText:    "short",
		HasImage:   true,
		ImageKeys:  []string{filepath.Join(t.TempDir(), "gone.png")},
	}))

	enricher := NewEnricher(llm.NewOfflineProvider(logger), store, recorder, 4, 1, "", logger)

	result, err := enricher.EnrichCategory(context.Background(), models.CategoryInsurance, 200)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesFailed)
	assert.Equal(t, int64(1), recorder.Count())
}
