// -----------------------------------------------------------------------
// Corpus Writer - persists merged documents as per-category JSON
// -----------------------------------------------------------------------

package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ternarybob/reperio/internal/models"
)

// DocumentEntry is the on-disk shape of one merged document
type DocumentEntry struct {
	Text string `json:"text"`
}

// CorpusFile maps document id (as a string key) to its merged body
type CorpusFile map[string]DocumentEntry

// FileName returns the corpus file name for a category
func FileName(category models.Category) string {
	return fmt.Sprintf("%s_corpus.json", category)
}

// WriteCorpus serializes the documents to <dir>/<category>_corpus.json.
// The write goes through a temp file and rename so a crash mid-write never
// leaves a truncated corpus behind.
func WriteCorpus(dir string, category models.Category, docs []*models.DocumentRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create corpus directory: %w", err)
	}

	file := make(CorpusFile, len(docs))
	for _, doc := range docs {
		file[strconv.Itoa(doc.DocumentID)] = DocumentEntry{Text: doc.MergedText}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal corpus: %w", err)
	}

	path := filepath.Join(dir, FileName(category))
	tmp, err := os.CreateTemp(dir, FileName(category)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp corpus file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close corpus file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to replace corpus file: %w", err)
	}

	return path, nil
}
