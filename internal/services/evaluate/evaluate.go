// -----------------------------------------------------------------------
// Precision Evaluator - scores predictions against ground truth
// -----------------------------------------------------------------------

package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ternarybob/reperio/internal/models"
)

// Mismatch is one wrongly answered question
type Mismatch struct {
	QID       int `json:"qid"`
	Predicted int `json:"predicted"`
	Expected  int `json:"expected"`
}

// Report is the outcome of one evaluation run
type Report struct {
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Precision  float64    `json:"precision"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
	MissingQID []int      `json:"missing_qids,omitempty"`
}

// LoadAnswers reads a predictions file
func LoadAnswers(path string) (*models.AnswerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers file %s: %w", path, err)
	}
	var set models.AnswerSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid answers JSON in %s: %w", path, err)
	}
	if len(set.Answers) == 0 {
		return nil, fmt.Errorf("answers file %s contains no answers", path)
	}
	return &set, nil
}

// LoadGroundTruth reads a ground truth file
func LoadGroundTruth(path string) (*models.GroundTruthSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth file %s: %w", path, err)
	}
	var set models.GroundTruthSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid ground truth JSON in %s: %w", path, err)
	}
	if len(set.GroundTruths) == 0 {
		return nil, fmt.Errorf("ground truth file %s contains no entries", path)
	}
	return &set, nil
}

// Score compares predictions to ground truth by qid. Precision is correct
// over the number of ground truth entries, so a missing prediction counts
// as wrong rather than shrinking the denominator.
func Score(answers *models.AnswerSet, truths *models.GroundTruthSet) *Report {
	predicted := make(map[int]int, len(answers.Answers))
	for _, a := range answers.Answers {
		predicted[a.QID] = a.Retrieve
	}

	report := &Report{Total: len(truths.GroundTruths)}
	for _, truth := range truths.GroundTruths {
		got, ok := predicted[truth.QID]
		if !ok {
			report.MissingQID = append(report.MissingQID, truth.QID)
			continue
		}
		if got == truth.Retrieve {
			report.Correct++
			continue
		}
		report.Mismatches = append(report.Mismatches, Mismatch{
			QID:       truth.QID,
			Predicted: got,
			Expected:  truth.Retrieve,
		})
	}

	sort.Ints(report.MissingQID)
	sort.Slice(report.Mismatches, func(i, j int) bool {
		return report.Mismatches[i].QID < report.Mismatches[j].QID
	})

	if report.Total > 0 {
		report.Precision = float64(report.Correct) / float64(report.Total)
	}
	return report
}
