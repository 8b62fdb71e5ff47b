package models

import "time"

// PageRecord represents one extracted PDF page as it moves through the
// pipeline stages. Created by the extractor, flagged by the tagger, and
// optionally enriched with a generated description before aggregation.
type PageRecord struct {
	// Identity
	DocumentID int      `json:"document_id" badgerhold:"index"`
	Category   Category `json:"category"`
	PageNumber int      `json:"page_number"`

	// Content
	RawText   string   `json:"raw_text"`
	ImageKeys []string `json:"image_keys,omitempty"` // filesystem paths of extracted page images

	// Tagger output
	HasTable bool `json:"has_table"`
	HasImage bool `json:"has_image"`

	// Enricher output; empty until a vision call succeeds
	GeneratedDescription string `json:"generated_description,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the unique storage key for this page record
func (p *PageRecord) Key() string {
	return PageKey(p.Category, p.DocumentID, p.PageNumber)
}

// NeedsEnrichment reports whether the page should be sent to the vision
// model: it carries image content and the extracted text alone is judged
// insufficient to describe the page.
func (p *PageRecord) NeedsEnrichment(minTextLength int) bool {
	if !p.HasImage || len(p.ImageKeys) == 0 {
		return false
	}
	if p.GeneratedDescription != "" {
		return false
	}
	return len(p.RawText) < minTextLength
}
