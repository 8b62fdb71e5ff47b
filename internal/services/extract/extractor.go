// -----------------------------------------------------------------------
// PDF Extractor Service - Extract per-page text and images from PDFs
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
)

// Extractor implements the PDFExtractor interface using pdfcpu
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
}

// Compile-time interface assertion
var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a new PDF extractor service
func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "reperio-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// contentFileRegex matches pdfcpu's extracted content file names
var contentFileRegex = regexp.MustCompile(`(?:Content_)?page_(\d+)`)

// imageFileRegex matches pdfcpu's extracted image file names, which embed
// the page number between underscores: <base>_<page>_<resource>.<ext>
var imageFileRegex = regexp.MustCompile(`_(\d+)_[A-Za-z0-9]+\.(?:png|jpe?g|tiff?)$`)

// ExtractFile extracts per-page text and image blobs from a PDF on disk.
// Image blobs are written under imageDir and referenced by path on the
// returned pages.
func (e *Extractor) ExtractFile(ctx context.Context, filePath, imageDir string) (*interfaces.PDFExtractionResult, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pageTexts, err := e.extractPageTexts(filePath, pageCount, conf)
	if err != nil {
		return nil, err
	}

	pageImages, err := e.extractPageImages(filePath, imageDir, conf)
	if err != nil {
		// Image extraction failure degrades to text-only pages; the page
		// records still exist and the tagger simply sees no image blobs.
		e.logger.Warn().Err(err).Str("file", filePath).Msg("Image extraction failed, continuing with text only")
		pageImages = map[int][]string{}
	}

	pages := make([]interfaces.PDFPageContent, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, interfaces.PDFPageContent{
			PageNumber: pageNum,
			Text:       pageTexts[pageNum],
			ImagePaths: pageImages[pageNum],
		})
	}

	return &interfaces.PDFExtractionResult{
		PageCount: pageCount,
		FileSize:  info.Size(),
		Pages:     pages,
	}, nil
}

// extractPageTexts extracts page content streams into a temp directory and
// maps them back by page number parsed from pdfcpu's file naming.
func (e *Extractor) extractPageTexts(filePath string, pageCount int, conf *model.Configuration) (map[int]string, error) {
	outDir, err := os.MkdirTemp(e.tempDir, "content_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp content dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	pageTexts := make(map[int]string, pageCount)

	if err := api.ExtractContentFile(filePath, outDir, nil, conf); err != nil {
		// Content extraction can fail on image-only PDFs while the pages
		// themselves remain valid; return empty text per page.
		e.logger.Warn().Err(err).Str("file", filePath).Msg("Content extraction failed, pages will carry empty text")
		return pageTexts, nil
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted content dir: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		match := contentFileRegex.FindStringSubmatch(file.Name())
		if match == nil {
			continue
		}
		pageNum, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = string(content)
	}

	return pageTexts, nil
}

// extractPageImages extracts embedded images into imageDir/<pdf-stem>/ and
// groups the written blob paths by page number.
func (e *Extractor) extractPageImages(filePath, imageDir string, conf *model.Configuration) (map[int][]string, error) {
	stem := fileStem(filePath)
	outDir := filepath.Join(imageDir, stem)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}

	if err := api.ExtractImagesFile(filePath, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted image dir: %w", err)
	}

	pageImages := make(map[int][]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		match := imageFileRegex.FindStringSubmatch(file.Name())
		if match == nil {
			continue
		}
		pageNum, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		pageImages[pageNum] = append(pageImages[pageNum], filepath.Join(outDir, file.Name()))
	}

	return pageImages, nil
}

// fileStem returns the file name without directory or extension
func fileStem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
