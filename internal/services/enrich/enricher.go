// -----------------------------------------------------------------------
// Multimodal Enricher - vision descriptions for image/table-heavy pages
// -----------------------------------------------------------------------

package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/audit"
	"github.com/ternarybob/reperio/internal/services/llm"
	"github.com/ternarybob/reperio/internal/worker"
)

// visionSystemPrompt asks the model to describe the page image completely
// enough that a reader understands the page without the original document.
const visionSystemPrompt = `You are a helpful assistant that extracts detailed information from document page images.
You will be provided with the parsed text of the document and an image of one page.
Extract the information from the image and combine it with the corresponding part of the parsed text, especially anything missing from the text (tables, charts, stamps, figures).
Respond with plain text only. The description must be complete enough that a reader fully understands the page without seeing the original document.`

// Enricher sends under-described pages with image content to a vision
// model and attaches the generated description. Work fans out over a
// bounded pool; a page that exhausts its retry budget stays unenriched and
// the batch continues.
type Enricher struct {
	provider   llm.Provider
	pages      interfaces.PageStorage
	recorder   *audit.Recorder
	pool       *worker.Pool
	retry      *llm.RetryConfig
	maxRetries int
	model      string
	logger     arbor.ILogger
}

// Result summarizes one enrichment run
type Result struct {
	PagesSelected int
	PagesEnriched int
	PagesFailed   int
}

// NewEnricher creates the enrichment stage service. maxTasks caps the
// simultaneous in-flight vision calls.
func NewEnricher(
	provider llm.Provider,
	pages interfaces.PageStorage,
	recorder *audit.Recorder,
	maxTasks, maxRetries int,
	model string,
	logger arbor.ILogger,
) *Enricher {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Enricher{
		provider:   provider,
		pages:      pages,
		recorder:   recorder,
		pool:       worker.NewPool(maxTasks, logger),
		retry:      llm.NewDefaultRetryConfig(),
		maxRetries: maxRetries,
		model:      model,
		logger:     logger,
	}
}

// EnrichCategory enriches every staged page of the category that needs it.
// Every selected page yields exactly one output record: either enriched or
// unchanged with the failure recorded in the error log.
func (e *Enricher) EnrichCategory(ctx context.Context, category models.Category, minTextLength int) (*Result, error) {
	selected, err := e.pages.ListNeedingEnrichment(ctx, category, minTextLength)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages needing enrichment: %w", err)
	}

	e.logger.Info().
		Str("category", string(category)).
		Int("selected", len(selected)).
		Msg("Starting enrichment run")

	tasks := make([]worker.Task, 0, len(selected))
	for _, page := range selected {
		page := page
		tasks = append(tasks, worker.Task{
			Key: page.Key(),
			Fn: func(ctx context.Context) error {
				return e.enrichPage(ctx, page)
			},
		})
	}

	failures := e.pool.Run(ctx, tasks)

	result := &Result{
		PagesSelected: len(selected),
		PagesEnriched: len(selected) - len(failures),
		PagesFailed:   len(failures),
	}

	e.logger.Info().
		Int("enriched", result.PagesEnriched).
		Int("failed", result.PagesFailed).
		Msg("Enrichment run complete")

	return result, nil
}

// enrichPage issues one vision call for the page and persists the
// description. Failures after the retry budget are recorded and swallowed:
// the page stays unenriched, downstream treats that as no enrichment.
func (e *Enricher) enrichPage(ctx context.Context, page *models.PageRecord) error {
	images, err := e.loadImages(page)
	if err != nil {
		e.recordFailure(page, 1, err)
		return err
	}

	response, err := llm.Retry(ctx, e.retry, e.maxRetries, func(ctx context.Context) (*llm.ContentResponse, error) {
		return e.provider.GenerateContent(ctx, &llm.ContentRequest{
			Messages: []interfaces.Message{
				{Role: "system", Content: visionSystemPrompt},
				{Role: "user", Content: e.userPrompt(page)},
			},
			Images: images,
			Model:  e.model,
		})
	})
	if err != nil {
		e.recordFailure(page, e.maxRetries, err)
		return err
	}

	description := strings.TrimSpace(response.Text)
	if description == "" {
		err := fmt.Errorf("vision call returned empty description")
		e.recordFailure(page, e.maxRetries, err)
		return err
	}

	page.GeneratedDescription = description
	if err := e.pages.SavePage(ctx, page); err != nil {
		return fmt.Errorf("failed to persist enriched page %s: %w", page.Key(), err)
	}

	e.logger.Debug().
		Str("key", page.Key()).
		Int("description_len", len(description)).
		Msg("Page enriched")

	return nil
}

// userPrompt frames the page context for the vision call
func (e *Enricher) userPrompt(page *models.PageRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %d, page %d of category %s.\n", page.DocumentID, page.PageNumber, page.Category)
	if page.HasTable {
		b.WriteString("The page appears to contain tabular data.\n")
	}
	if page.RawText != "" {
		b.WriteString("Parsed text of the page:\n")
		b.WriteString(page.RawText)
	} else {
		b.WriteString("No text could be parsed from this page.")
	}
	return b.String()
}

// loadImages reads the page's extracted image blobs from disk
func (e *Enricher) loadImages(page *models.PageRecord) ([]llm.ImagePart, error) {
	images := make([]llm.ImagePart, 0, len(page.ImageKeys))
	for _, key := range page.ImageKeys {
		data, err := os.ReadFile(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read image blob %s: %w", key, err)
		}
		images = append(images, llm.ImagePart{
			Data:     data,
			MIMEType: mimeTypeForExt(filepath.Ext(key)),
		})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("page has no readable image blobs")
	}
	return images, nil
}

func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}

// recordFailure logs the enrichment failure to the audit trail
func (e *Enricher) recordFailure(page *models.PageRecord, attempts int, err error) {
	callErr := &models.EnrichmentCallError{Key: page.Key(), Attempts: attempts, Err: err}
	e.logger.Warn().Err(callErr).Str("key", page.Key()).Msg("Page left unenriched")
	e.recorder.Record("enrich", page.Key(), callErr)
}
