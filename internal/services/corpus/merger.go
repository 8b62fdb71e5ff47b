// -----------------------------------------------------------------------
// Document Merger - joins page text and enrichment into one body
// -----------------------------------------------------------------------

package corpus

import (
	"strings"

	"github.com/ternarybob/reperio/internal/models"
)

// MergeDocument concatenates the raw text and generated description of
// every page, in page order, into the document's merged body. The merge is
// pure: the same pages always produce byte-identical output.
func MergeDocument(doc *models.DocumentRecord) string {
	var b strings.Builder
	for _, page := range doc.Pages {
		text := strings.TrimSpace(page.RawText)
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
		description := strings.TrimSpace(page.GeneratedDescription)
		if description != "" {
			b.WriteString(description)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
