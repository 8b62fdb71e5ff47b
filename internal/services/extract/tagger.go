package extract

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/models"
)

// Tagger marks page records with content-type flags using deterministic
// heuristics. No external calls: image presence comes from the extracted
// blobs, table presence from the column alignment of the raw text.
type Tagger struct {
	// Minimum column-separated tokens on a line before it counts as a
	// table row candidate
	columnThreshold int
	// Minimum qualifying rows before the page is flagged as tabular
	rowThreshold int
	logger       arbor.ILogger
}

// NewTagger creates a tagger with the configured heuristic thresholds
func NewTagger(columnThreshold, rowThreshold int, logger arbor.ILogger) *Tagger {
	if columnThreshold < 2 {
		columnThreshold = 2
	}
	if rowThreshold < 1 {
		rowThreshold = 1
	}
	return &Tagger{
		columnThreshold: columnThreshold,
		rowThreshold:    rowThreshold,
		logger:          logger,
	}
}

// TagPage sets HasTable and HasImage on the record in place. A malformed
// record (missing identity) raises a TaggingError and the page is excluded
// from downstream stages.
func (t *Tagger) TagPage(page *models.PageRecord) error {
	if page == nil {
		return &models.TaggingError{Key: "<nil>", Err: fmt.Errorf("nil page record")}
	}
	if page.DocumentID <= 0 || page.PageNumber <= 0 {
		return &models.TaggingError{
			Key: page.Key(),
			Err: fmt.Errorf("page record missing identity (document_id=%d, page_number=%d)", page.DocumentID, page.PageNumber),
		}
	}

	page.HasImage = len(page.ImageKeys) > 0
	page.HasTable = t.detectTable(page.RawText)

	return nil
}

// detectTable looks for repeated lines with several column-aligned tokens.
// Wide whitespace runs and pipe separators both count as column breaks.
func (t *Tagger) detectTable(text string) bool {
	if text == "" {
		return false
	}

	rows := 0
	for _, line := range strings.Split(text, "\n") {
		if t.countColumns(line) >= t.columnThreshold {
			rows++
			if rows >= t.rowThreshold {
				return true
			}
		}
	}
	return false
}

// countColumns counts column-like token groups on one line
func (t *Tagger) countColumns(line string) int {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0
	}

	// Explicit pipe-delimited rows
	if strings.Count(line, "|") >= t.columnThreshold-1 {
		return strings.Count(line, "|") + 1
	}

	// Runs of two or more spaces (or tabs) separate columns
	columns := 1
	spaceRun := 0
	for _, r := range line {
		if r == ' ' || r == '\t' {
			spaceRun++
			continue
		}
		if spaceRun >= 2 {
			columns++
		}
		spaceRun = 0
	}
	return columns
}
