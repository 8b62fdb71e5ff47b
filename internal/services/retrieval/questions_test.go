package retrieval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/models"
)

func writeQuestionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestions(t *testing.T) {
	path := writeQuestionsFile(t, `{
		"questions": [
			{"qid": 1, "category": "finance", "query": "quarterly revenue", "source": [205, 206]},
			{"qid": 2, "category": "faq", "query": "password reset", "source": [309]}
		]
	}`)

	set, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, set.Questions, 2)
	assert.Equal(t, 1, set.Questions[0].QID)
	assert.Equal(t, []int{205, 206}, set.Questions[0].Source)
}

func TestLoadQuestionsRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Not JSON", content: `not json at all`},
		{name: "No Questions", content: `{"questions": []}`},
		{name: "Missing QID", content: `{"questions": [{"category": "finance", "query": "q", "source": [1]}]}`},
		{name: "Unknown Category", content: `{"questions": [{"qid": 1, "category": "legal", "query": "q", "source": [1]}]}`},
		{name: "Empty Query", content: `{"questions": [{"qid": 1, "category": "finance", "query": "", "source": [1]}]}`},
		{name: "Empty Source", content: `{"questions": [{"qid": 1, "category": "finance", "query": "q", "source": []}]}`},
		{name: "Negative Source ID", content: `{"questions": [{"qid": 1, "category": "finance", "query": "q", "source": [-3]}]}`},
		{
			name: "Duplicate QID",
			content: `{"questions": [
				{"qid": 1, "category": "finance", "query": "a", "source": [1]},
				{"qid": 1, "category": "faq", "query": "b", "source": [2]}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQuestions(writeQuestionsFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadQuestionsMissingFile(t *testing.T) {
	_, err := LoadQuestions(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestWriteAnswers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "answers.json")

	answers := &models.AnswerSet{Answers: []models.Prediction{
		{QID: 1, Retrieve: 205},
		{QID: 2, Retrieve: 309, Fallback: true},
	}}

	require.NoError(t, WriteAnswers(path, answers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded models.AnswerSet
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Len(t, loaded.Answers, 2)
	assert.Equal(t, 205, loaded.Answers[0].Retrieve)

	// Fallback is internal bookkeeping, not output
	assert.NotContains(t, string(data), "fallback")
	assert.NotContains(t, string(data), "Fallback")
}

func TestCheckWritable(t *testing.T) {
	dir := t.TempDir()

	// Creates missing directories and leaves nothing behind
	path := filepath.Join(dir, "out", "answers.json")
	require.NoError(t, CheckWritable(path))
	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A file in the directory position is not writable
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	assert.Error(t, CheckWritable(filepath.Join(blocker, "answers.json")))
}
