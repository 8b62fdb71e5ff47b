package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRecorderAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.txt")

	recorder, err := NewRecorder(path, arbor.NewLogger())
	require.NoError(t, err)

	recorder.Record("enrich", "finance/101/0001", fmt.Errorf("vision call failed"))
	recorder.Record("retrieve", "qid-7", fmt.Errorf("bad response"))
	require.NoError(t, recorder.Close())

	assert.Equal(t, int64(2), recorder.Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stage=enrich")
	assert.Contains(t, lines[0], "key=finance/101/0001")
	assert.Contains(t, lines[0], "vision call failed")
	assert.Contains(t, lines[1], "stage=retrieve")
	assert.Contains(t, lines[1], "run="+recorder.RunID())
}

func TestRecorderAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.txt")

	first, err := NewRecorder(path, arbor.NewLogger())
	require.NoError(t, err)
	first.Record("enrich", "a", fmt.Errorf("one"))
	require.NoError(t, first.Close())

	second, err := NewRecorder(path, arbor.NewLogger())
	require.NoError(t, err)
	second.Record("enrich", "b", fmt.Errorf("two"))
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2, "a new run must not truncate earlier entries")
	assert.NotEqual(t, first.RunID(), second.RunID())
}

func TestRecorderConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error_log.txt")

	recorder, err := NewRecorder(path, arbor.NewLogger())
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			recorder.Record("retrieve", fmt.Sprintf("qid-%d", n), fmt.Errorf("err %d", n))
		}(i)
	}
	wg.Wait()
	require.NoError(t, recorder.Close())

	assert.Equal(t, int64(writers), recorder.Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, writers)
	for _, line := range lines {
		assert.Contains(t, line, "stage=retrieve", "lines must not interleave")
	}
}

func TestRecorderUnwritablePath(t *testing.T) {
	_, err := NewRecorder(filepath.Join(t.TempDir(), "missing", "nested", "log.txt"), arbor.NewLogger())
	assert.Error(t, err)
}
