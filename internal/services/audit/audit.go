// -----------------------------------------------------------------------
// Error Audit - append-only error log for failed external calls
// -----------------------------------------------------------------------

package audit

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// Recorder accumulates per-run failures of external calls. Appends are safe
// under concurrency: the counter is atomic and the file writes are
// serialized by a mutex. One line per failure carries enough context
// (stage, identifying key, error) to diagnose without re-running the batch.
type Recorder struct {
	runID  string
	path   string
	file   *os.File
	mu     sync.Mutex
	count  int64
	logger arbor.ILogger
}

// NewRecorder opens (or creates) the append-only error log at path. An
// unwritable path is a configuration-level failure and aborts before any
// work starts.
func NewRecorder(path string, logger arbor.ILogger) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log %s: %w", path, err)
	}

	return &Recorder{
		runID:  uuid.New().String()[:8],
		path:   path,
		file:   file,
		logger: logger,
	}, nil
}

// RunID returns the short run identifier stamped on every log line
func (r *Recorder) RunID() string {
	return r.runID
}

// Record appends one failure line and increments the error counter.
// stage names the pipeline stage ("enrich", "retrieve"), key identifies the
// unit (page key or qid).
func (r *Recorder) Record(stage, key string, err error) {
	atomic.AddInt64(&r.count, 1)

	line := fmt.Sprintf("%s run=%s stage=%s key=%s error=%v\n",
		time.Now().Format(time.RFC3339), r.runID, stage, key, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, werr := r.file.WriteString(line); werr != nil {
		r.logger.Error().Err(werr).Str("path", r.path).Msg("Failed to append to error log")
	}
}

// Count returns the number of recorded failures so far
func (r *Recorder) Count() int64 {
	return atomic.LoadInt64(&r.count)
}

// Close flushes and closes the log file
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
