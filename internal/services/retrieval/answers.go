package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/reperio/internal/models"
)

// CheckWritable verifies the answers path can be written before a run
// spends its model budget. It creates the output directory and confirms a
// temp file can be placed there.
func CheckWritable(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".check-*")
	if err != nil {
		return fmt.Errorf("output directory is not writable: %w", err)
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

// WriteAnswers persists the answer set as JSON through a temp file and
// rename, so readers never observe a partially written file.
func WriteAnswers(path string, answers *models.AnswerSet) error {
	data, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp answers file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write answers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close answers file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace answers file: %w", err)
	}
	return nil
}
