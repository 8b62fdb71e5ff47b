// -----------------------------------------------------------------------
// Question Loader - typed, validated input for the retrieval stage
// -----------------------------------------------------------------------

package retrieval

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/reperio/internal/models"
)

var validate = validator.New()

// LoadQuestions reads and validates the questions file. A single malformed
// question fails the whole load: partial question sets produce answer files
// that silently miss qids, which is worse than an upfront error.
func LoadQuestions(path string) (*models.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file %s: %w", path, err)
	}

	var set models.QuestionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid questions JSON in %s: %w", path, err)
	}
	if len(set.Questions) == 0 {
		return nil, fmt.Errorf("questions file %s contains no questions", path)
	}

	seen := make(map[int]bool, len(set.Questions))
	for i := range set.Questions {
		q := &set.Questions[i]
		if err := validate.Struct(q); err != nil {
			return nil, fmt.Errorf("question at index %d is invalid: %w", i, err)
		}
		if seen[q.QID] {
			return nil, fmt.Errorf("duplicate qid %d in questions file", q.QID)
		}
		seen[q.QID] = true
	}

	return &set, nil
}
