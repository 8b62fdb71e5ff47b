package models

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Every error is scoped to a single file, page,
// document or query; none of them is allowed to abort the batch. Only
// configuration-level failures (missing credential, unreadable questions
// file, unwritable output path) are fatal, and those happen before any
// work starts.

// ExtractionError marks an unreadable or corrupt source PDF. The file is
// skipped and the rest of the directory continues.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TaggingError marks a malformed page record. The page is excluded from
// downstream stages and the document continues.
type TaggingError struct {
	Key string
	Err error
}

func (e *TaggingError) Error() string {
	return fmt.Sprintf("tagging failed for page %s: %v", e.Key, e.Err)
}

func (e *TaggingError) Unwrap() error { return e.Err }

// AggregationError marks a document whose page sequence is non-contiguous
// beyond the tolerated gap. The document is excluded from the corpus.
type AggregationError struct {
	DocumentID int
	Category   Category
	Err        error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed for %s document %d: %v", e.Category, e.DocumentID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// EnrichmentCallError marks a vision call that failed or returned unparsable
// content after exhausting retries. The page stays unenriched.
type EnrichmentCallError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *EnrichmentCallError) Error() string {
	return fmt.Sprintf("enrichment call failed for page %s after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *EnrichmentCallError) Unwrap() error { return e.Err }

// RetrievalCallError marks a retrieval call that failed or returned
// unparsable content after exhausting retries. A fallback prediction is
// emitted so the output still covers the query.
type RetrievalCallError struct {
	QID      int
	Attempts int
	Err      error
}

func (e *RetrievalCallError) Error() string {
	return fmt.Sprintf("retrieval call failed for qid %d after %d attempts: %v", e.QID, e.Attempts, e.Err)
}

func (e *RetrievalCallError) Unwrap() error { return e.Err }

// CorpusLoadError marks a corpus file that could not be read or failed
// validation at load time. Raised before retrieval begins.
type CorpusLoadError struct {
	Path string
	Err  error
}

func (e *CorpusLoadError) Error() string {
	return fmt.Sprintf("corpus load failed for %s: %v", e.Path, e.Err)
}

func (e *CorpusLoadError) Unwrap() error { return e.Err }

// ErrRetriesExhausted is wrapped by the retry combinator when every attempt
// has failed; callers branch on it to distinguish exhaustion from context
// cancellation.
var ErrRetriesExhausted = errors.New("retries exhausted")
