package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/common"
)

// Task is one independent unit of work. Key identifies the unit in logs and
// results; units must not share mutable state with each other.
type Task struct {
	Key string
	Fn  func(ctx context.Context) error
}

// Pool executes independent tasks under a hard cap on simultaneous
// in-flight units. Completion order is unspecified; each unit's failure is
// isolated and reported per key, never propagated to siblings.
type Pool struct {
	maxTasks int
	logger   arbor.ILogger
}

// NewPool creates a bounded pool. maxTasks is the only concurrency control:
// at most maxTasks units run at once.
func NewPool(maxTasks int, logger arbor.ILogger) *Pool {
	if maxTasks < 1 {
		maxTasks = 1
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Pool{
		maxTasks: maxTasks,
		logger:   logger,
	}
}

// Run dispatches every task and waits for all of them to finish. It returns
// the per-key errors of failed units; a non-empty result is not a batch
// failure. Run itself only fails when the context is cancelled before all
// tasks were dispatched.
func (p *Pool) Run(ctx context.Context, tasks []Task) map[string]error {
	sem := make(chan struct{}, p.maxTasks)
	var wg sync.WaitGroup

	var mu sync.Mutex
	failures := make(map[string]error)

	p.logger.Info().
		Int("max_tasks", p.maxTasks).
		Int("total_tasks", len(tasks)).
		Msg("Starting worker pool")

	for i := range tasks {
		task := tasks[i]

		if err := ctx.Err(); err != nil {
			mu.Lock()
			failures[task.Key] = err
			mu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			mu.Lock()
			failures[task.Key] = ctx.Err()
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					p.logger.Error().
						Str("task", task.Key).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(buf[:n])).
						Msg("Recovered from panic in task - continuing batch")
					mu.Lock()
					failures[task.Key] = fmt.Errorf("panic: %v", r)
					mu.Unlock()
				}
			}()

			if err := task.Fn(ctx); err != nil {
				mu.Lock()
				failures[task.Key] = err
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(failures) > 0 {
		p.logger.Warn().
			Int("failed", len(failures)).
			Int("total", len(tasks)).
			Msg("Worker pool finished with unit failures")
	} else {
		p.logger.Info().
			Int("total", len(tasks)).
			Msg("Worker pool finished")
	}

	return failures
}
