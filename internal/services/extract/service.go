package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// Service runs the extraction and tagging stages over a category directory
// of PDFs and stages the resulting page records for enrichment.
type Service struct {
	extractor interfaces.PDFExtractor
	tagger    *Tagger
	pages     interfaces.PageStorage
	logger    arbor.ILogger
}

// Result summarizes one directory run
type Result struct {
	FilesProcessed int
	FilesFailed    int
	PagesStaged    int
	PagesExcluded  int
}

// NewService creates the extraction stage service
func NewService(extractor interfaces.PDFExtractor, tagger *Tagger, pages interfaces.PageStorage, logger arbor.ILogger) *Service {
	return &Service{
		extractor: extractor,
		tagger:    tagger,
		pages:     pages,
		logger:    logger,
	}
}

// ProcessDirectory extracts and tags every PDF in inputDir for the given
// category. A corrupt PDF is reported as an ExtractionError and skipped;
// the rest of the directory continues. The returned result carries the
// error count for the final report.
func (s *Service) ProcessDirectory(ctx context.Context, inputDir, imageDir string, category models.Category) (*Result, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", inputDir, err)
	}

	var pdfFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			pdfFiles = append(pdfFiles, entry.Name())
		}
	}
	sort.Strings(pdfFiles)

	s.logger.Info().
		Str("input_dir", inputDir).
		Str("category", string(category)).
		Int("pdf_count", len(pdfFiles)).
		Msg("Processing PDF directory")

	result := &Result{}
	for _, name := range pdfFiles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		path := filepath.Join(inputDir, name)
		staged, excluded, err := s.processFile(ctx, path, imageDir, category)
		if err != nil {
			extErr := &models.ExtractionError{File: name, Err: err}
			s.logger.Error().Err(extErr).Str("file", name).Msg("Skipping unreadable PDF")
			result.FilesFailed++
			continue
		}

		result.FilesProcessed++
		result.PagesStaged += staged
		result.PagesExcluded += excluded
		s.logger.Info().
			Str("file", name).
			Int("pages", staged).
			Msg("Processed PDF")
	}

	s.logger.Info().
		Int("processed", result.FilesProcessed).
		Int("failed", result.FilesFailed).
		Int("pages_staged", result.PagesStaged).
		Msg("Directory processing complete")

	return result, nil
}

// processFile extracts one PDF into tagged, staged page records. Returns the
// number of pages staged and the number excluded by the tagger.
func (s *Service) processFile(ctx context.Context, path, imageDir string, category models.Category) (int, int, error) {
	documentID, err := documentIDFromPath(path)
	if err != nil {
		return 0, 0, err
	}

	extraction, err := s.extractor.ExtractFile(ctx, path, imageDir)
	if err != nil {
		return 0, 0, err
	}

	staged := 0
	excluded := 0
	for _, page := range extraction.Pages {
		record := &models.PageRecord{
			DocumentID: documentID,
			Category:   category,
			PageNumber: page.PageNumber,
			RawText:    page.Text,
			ImageKeys:  page.ImagePaths,
		}

		if err := s.tagger.TagPage(record); err != nil {
			var tagErr *models.TaggingError
			if errors.As(err, &tagErr) {
				s.logger.Warn().Err(err).Str("key", tagErr.Key).Msg("Excluding malformed page record")
				excluded++
				continue
			}
			return staged, excluded, err
		}

		if err := s.pages.SavePage(ctx, record); err != nil {
			return staged, excluded, err
		}
		staged++
	}

	return staged, excluded, nil
}

// documentIDFromPath derives the numeric document id from the PDF file name.
// The corpus convention names each source document by its id ("101.pdf").
func documentIDFromPath(path string) (int, error) {
	stem := fileStem(path)
	id, err := strconv.Atoi(stem)
	if err != nil {
		return 0, fmt.Errorf("file name %q is not a numeric document id", filepath.Base(path))
	}
	if id <= 0 {
		return 0, fmt.Errorf("document id must be positive, got %d", id)
	}
	return id, nil
}
