// -----------------------------------------------------------------------
// PDF Extractor Interface - Extract text and page images from PDF documents
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
)

// PDFPageContent represents extracted content from a single PDF page
type PDFPageContent struct {
	PageNumber int      `json:"page_number"`
	Text       string   `json:"text"`
	ImagePaths []string `json:"image_paths,omitempty"`
}

// PDFExtractionResult contains the complete extraction result for one file
type PDFExtractionResult struct {
	PageCount int              `json:"page_count"`
	FileSize  int64            `json:"file_size"`
	Pages     []PDFPageContent `json:"pages"`
}

// PDFExtractor defines the interface for extracting content from PDF
// documents. It abstracts the extraction backend so that tests can inject
// a fixture-based implementation.
type PDFExtractor interface {
	// ExtractFile extracts per-page text and image blobs from a PDF on disk.
	// Page images are written under imageDir and referenced by path.
	ExtractFile(ctx context.Context, filePath, imageDir string) (*PDFExtractionResult, error)
}
