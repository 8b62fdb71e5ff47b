package models

import (
	"fmt"
	"sort"
)

// Category identifies a corpus partition. All pages of a document share the
// same category, and queries are only answered against their own partition.
type Category string

const (
	CategoryFinance   Category = "finance"
	CategoryInsurance Category = "insurance"
	CategoryFAQ       Category = "faq"
)

// Categories lists every known corpus partition in a stable order
func Categories() []Category {
	return []Category{CategoryFinance, CategoryInsurance, CategoryFAQ}
}

// ParseCategory validates a category string from external input
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFinance, CategoryInsurance, CategoryFAQ:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// PageKey builds the storage key for a page record
func PageKey(category Category, documentID, pageNumber int) string {
	return fmt.Sprintf("%s/%d/%04d", category, documentID, pageNumber)
}

// DocumentRecord is the canonical per-PDF unit consumed by retrieval.
// Pages are sorted strictly ascending by page number; MergedText is set by
// the merger as the final pipeline step and the record is immutable after.
type DocumentRecord struct {
	DocumentID int           `json:"document_id"`
	Category   Category      `json:"category"`
	Pages      []*PageRecord `json:"pages"`
	MergedText string        `json:"merged_text"`
}

// SortPages orders pages ascending by page number
func (d *DocumentRecord) SortPages() {
	sort.Slice(d.Pages, func(i, j int) bool {
		return d.Pages[i].PageNumber < d.Pages[j].PageNumber
	})
}

// ValidatePageSequence checks that page numbers are strictly increasing with
// no duplicates and no gap wider than maxGap. A violated sequence indicates
// upstream extraction loss and excludes the document from the corpus.
func (d *DocumentRecord) ValidatePageSequence(maxGap int) error {
	if len(d.Pages) == 0 {
		return fmt.Errorf("document %d has no pages", d.DocumentID)
	}
	for i := 1; i < len(d.Pages); i++ {
		prev := d.Pages[i-1].PageNumber
		cur := d.Pages[i].PageNumber
		if cur == prev {
			return fmt.Errorf("document %d: duplicate page number %d", d.DocumentID, cur)
		}
		if cur < prev {
			return fmt.Errorf("document %d: pages out of order (%d after %d)", d.DocumentID, cur, prev)
		}
		if gap := cur - prev - 1; gap > maxGap {
			return fmt.Errorf("document %d: gap of %d pages between %d and %d exceeds tolerance %d",
				d.DocumentID, gap, prev, cur, maxGap)
		}
	}
	return nil
}
