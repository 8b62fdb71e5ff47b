// -----------------------------------------------------------------------
// Retrieval Engine - concurrent LLM selection over candidate documents
// -----------------------------------------------------------------------

package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/audit"
	"github.com/ternarybob/reperio/internal/services/corpus"
	"github.com/ternarybob/reperio/internal/services/llm"
	"github.com/ternarybob/reperio/internal/worker"
)

// Engine answers each question with exactly one document id. Questions fan
// out over a bounded pool; a question whose model calls exhaust the retry
// budget falls back to its first resolvable candidate so the answer set
// always covers every qid.
type Engine struct {
	provider    llm.Provider
	corpus      *corpus.Corpus
	recorder    *audit.Recorder
	pool        *worker.Pool
	retry       *llm.RetryConfig
	maxRetries  int
	model       string
	temperature float32
	maxTokens   int
	logger      arbor.ILogger
}

// RunResult summarizes one retrieval run
type RunResult struct {
	Answers   *models.AnswerSet
	Fallbacks int
}

func NewEngine(
	provider llm.Provider,
	idx *corpus.Corpus,
	recorder *audit.Recorder,
	maxTasks, maxRetries int,
	model string,
	temperature float32,
	maxTokens int,
	logger arbor.ILogger,
) *Engine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Engine{
		provider:    provider,
		corpus:      idx,
		recorder:    recorder,
		pool:        worker.NewPool(maxTasks, logger),
		retry:       llm.NewDefaultRetryConfig(),
		maxRetries:  maxRetries,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Run answers every question in the set. The returned answers are sorted
// by qid and cover each input qid exactly once; a run that cannot produce
// a prediction for every qid returns an error instead of a partial set.
func (e *Engine) Run(ctx context.Context, questions *models.QuestionSet) (*RunResult, error) {
	if e.corpus.Size() == 0 {
		return nil, fmt.Errorf("corpus is empty, nothing to retrieve from")
	}

	var mu sync.Mutex
	predictions := make([]models.Prediction, 0, len(questions.Questions))

	tasks := make([]worker.Task, 0, len(questions.Questions))
	for i := range questions.Questions {
		question := questions.Questions[i]
		tasks = append(tasks, worker.Task{
			Key: fmt.Sprintf("qid-%d", question.QID),
			Fn: func(ctx context.Context) error {
				prediction := e.answer(ctx, &question)
				mu.Lock()
				predictions = append(predictions, prediction)
				mu.Unlock()
				return nil
			},
		})
	}

	// Tasks themselves never fail; a pool failure means the question was
	// never dispatched (cancellation) or its unit died. Either way the
	// answer set would be missing qids, so the run aborts.
	if failures := e.pool.Run(ctx, tasks); len(failures) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("retrieval run aborted with %d of %d questions unanswered: %w",
				len(failures), len(questions.Questions), err)
		}
		return nil, fmt.Errorf("retrieval run left %d of %d questions unanswered",
			len(failures), len(questions.Questions))
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].QID < predictions[j].QID
	})

	fallbacks := 0
	for _, p := range predictions {
		if p.Fallback {
			fallbacks++
		}
	}

	e.logger.Info().
		Int("questions", len(questions.Questions)).
		Int("fallbacks", fallbacks).
		Msg("Retrieval run complete")

	return &RunResult{
		Answers:   &models.AnswerSet{Answers: predictions},
		Fallbacks: fallbacks,
	}, nil
}

// answer resolves candidates, asks the model and parses the selection.
// Nothing here returns an error: one prediction per question is the
// contract, failures degrade to the first candidate.
func (e *Engine) answer(ctx context.Context, question *models.Question) models.Prediction {
	candidateIDs, bodies := e.resolveCandidates(question)
	if len(candidateIDs) == 0 {
		err := fmt.Errorf("none of the %d source documents exist in the corpus", len(question.Source))
		e.recordFailure(question, 1, err)
		return models.Prediction{QID: question.QID, Retrieve: question.Source[0], Fallback: true}
	}
	if len(candidateIDs) == 1 {
		// A sole resolvable candidate is answered directly. The model has
		// nothing to choose between, so the call is skipped on purpose.
		return models.Prediction{QID: question.QID, Retrieve: candidateIDs[0]}
	}

	prompt := BuildPrompt(question.Query, candidateIDs, bodies)

	selected, err := llm.Retry(ctx, e.retry, e.maxRetries, func(ctx context.Context) (int, error) {
		response, err := e.provider.GenerateContent(ctx, &llm.ContentRequest{
			Messages: []interfaces.Message{
				{Role: "system", Content: retrievalSystemPrompt},
				{Role: "user", Content: prompt},
			},
			Model:       e.model,
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		})
		if err != nil {
			return 0, err
		}
		return ParseSelection(response.Text, candidateIDs)
	})
	if err != nil {
		e.recordFailure(question, e.maxRetries, err)
		return models.Prediction{QID: question.QID, Retrieve: candidateIDs[0], Fallback: true}
	}

	return models.Prediction{QID: question.QID, Retrieve: selected}
}

// resolveCandidates maps the question's source ids to corpus bodies,
// preserving the question's candidate order. Missing documents are logged
// and dropped rather than sent to the model as empty text.
func (e *Engine) resolveCandidates(question *models.Question) ([]int, map[int]string) {
	category := models.Category(question.Category)
	ids := make([]int, 0, len(question.Source))
	bodies := make(map[int]string, len(question.Source))

	for _, id := range question.Source {
		text, ok := e.corpus.Get(category, id)
		if !ok {
			e.logger.Warn().
				Int("qid", question.QID).
				Int("document_id", id).
				Str("category", question.Category).
				Msg("Candidate document missing from corpus, dropping")
			continue
		}
		ids = append(ids, id)
		bodies[id] = text
	}
	return ids, bodies
}

func (e *Engine) recordFailure(question *models.Question, attempts int, err error) {
	callErr := &models.RetrievalCallError{QID: question.QID, Attempts: attempts, Err: err}
	e.logger.Warn().Err(callErr).Int("qid", question.QID).Msg("Falling back to first candidate")
	e.recorder.Record("retrieve", fmt.Sprintf("qid-%d", question.QID), callErr)
}
