// -----------------------------------------------------------------------
// Page Aggregator - groups staged pages into ordered documents
// -----------------------------------------------------------------------

package corpus

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// Aggregator groups the staged pages of a category by document id and
// validates each document's page sequence. Documents that fail validation
// are excluded from the corpus, never silently patched.
type Aggregator struct {
	pages  interfaces.PageStorage
	maxGap int
	logger arbor.ILogger
}

// AggregateResult reports what survived aggregation
type AggregateResult struct {
	Documents         []*models.DocumentRecord
	DocumentsExcluded int
}

func NewAggregator(pages interfaces.PageStorage, maxGap int, logger arbor.ILogger) *Aggregator {
	return &Aggregator{
		pages:  pages,
		maxGap: maxGap,
		logger: logger,
	}
}

// AggregateCategory loads every staged page of the category and assembles
// per-document records with pages sorted by page number.
func (a *Aggregator) AggregateCategory(ctx context.Context, category models.Category) (*AggregateResult, error) {
	staged, err := a.pages.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged pages for %s: %w", category, err)
	}
	if len(staged) == 0 {
		return nil, fmt.Errorf("no staged pages found for category %s", category)
	}

	grouped := make(map[int][]*models.PageRecord)
	for _, page := range staged {
		grouped[page.DocumentID] = append(grouped[page.DocumentID], page)
	}

	ids := make([]int, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	result := &AggregateResult{}
	for _, id := range ids {
		doc := &models.DocumentRecord{
			DocumentID: id,
			Category:   category,
			Pages:      grouped[id],
		}
		doc.SortPages()

		if err := doc.ValidatePageSequence(a.maxGap); err != nil {
			aggErr := &models.AggregationError{DocumentID: id, Category: category, Err: err}
			a.logger.Warn().Err(aggErr).Int("document_id", id).Msg("Document excluded from corpus")
			result.DocumentsExcluded++
			continue
		}

		result.Documents = append(result.Documents, doc)
	}

	a.logger.Info().
		Str("category", string(category)).
		Int("documents", len(result.Documents)).
		Int("excluded", result.DocumentsExcluded).
		Msg("Aggregation complete")

	return result, nil
}
