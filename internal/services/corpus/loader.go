// -----------------------------------------------------------------------
// Corpus Loader - reads corpus files into the retrieval-side index
// -----------------------------------------------------------------------

package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ternarybob/reperio/internal/models"
)

// Corpus is the in-memory retrieval index: merged document bodies keyed by
// category and document id.
type Corpus struct {
	docs map[models.Category]map[int]string
}

func NewCorpus() *Corpus {
	return &Corpus{docs: make(map[models.Category]map[int]string)}
}

// Get returns the merged body of a document, false when absent
func (c *Corpus) Get(category models.Category, documentID int) (string, bool) {
	byID, ok := c.docs[category]
	if !ok {
		return "", false
	}
	text, ok := byID[documentID]
	return text, ok
}

// DocumentIDs returns the sorted document ids of a category
func (c *Corpus) DocumentIDs(category models.Category) []int {
	byID := c.docs[category]
	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Size returns the total number of loaded documents
func (c *Corpus) Size() int {
	total := 0
	for _, byID := range c.docs {
		total += len(byID)
	}
	return total
}

func (c *Corpus) add(category models.Category, documentID int, text string) {
	if c.docs[category] == nil {
		c.docs[category] = make(map[int]string)
	}
	c.docs[category][documentID] = text
}

// LoadCorpus reads the corpus file of one category into the index. Keys
// that do not parse as document ids are a corpus defect, not data to skip.
func (c *Corpus) LoadCorpus(dir string, category models.Category) (int, error) {
	path := filepath.Join(dir, FileName(category))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, &models.CorpusLoadError{Path: path, Err: err}
	}

	var file CorpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, &models.CorpusLoadError{Path: path, Err: fmt.Errorf("invalid corpus JSON: %w", err)}
	}
	if len(file) == 0 {
		return 0, &models.CorpusLoadError{Path: path, Err: fmt.Errorf("corpus file is empty")}
	}

	for key, entry := range file {
		id, err := strconv.Atoi(key)
		if err != nil {
			return 0, &models.CorpusLoadError{Path: path, Err: fmt.Errorf("document key %q is not numeric", key)}
		}
		c.add(category, id, entry.Text)
	}

	return len(file), nil
}

// LoadAll loads every category's corpus file from the directory
func (c *Corpus) LoadAll(dir string) (int, error) {
	total := 0
	for _, category := range models.Categories() {
		n, err := c.LoadCorpus(dir, category)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
