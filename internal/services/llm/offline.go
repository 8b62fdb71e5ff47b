package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

// ProviderOffline identifies the deterministic local provider
const ProviderOffline ProviderType = "offline"

// OfflineProvider is a deterministic, fully local Provider. It makes no
// network calls: vision requests get a fixed placeholder description and
// retrieval requests are answered by lexical token overlap between the
// question and each candidate document block in the prompt.
//
// It exists as the test seam for the pipeline: every concurrency and
// coverage property can be exercised without live API cost, and runs can be
// smoke-tested end to end with REPERIO_LLM_PROVIDER=offline.
type OfflineProvider struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ Provider = (*OfflineProvider)(nil)

// NewOfflineProvider creates a deterministic local provider
func NewOfflineProvider(logger arbor.ILogger) *OfflineProvider {
	return &OfflineProvider{logger: logger}
}

func (p *OfflineProvider) GetProviderType() ProviderType { return ProviderOffline }

func (p *OfflineProvider) Close() error { return nil }

// documentBlockRegex matches the candidate delimiters produced by the
// retrieval prompt builder: a "Document <id>:" header line.
var documentBlockRegex = regexp.MustCompile(`(?m)^Document (\d+):$`)

// GenerateContent answers deterministically. Requests carrying images are
// treated as vision description calls; everything else is scored as a
// retrieval prompt.
func (p *OfflineProvider) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(request.Messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	prompt := request.Messages[len(request.Messages)-1].Content

	if len(request.Images) > 0 {
		return &ContentResponse{
			Text:     fmt.Sprintf("Offline description of %d page image(s); no visual content analyzed.", len(request.Images)),
			Provider: ProviderOffline,
			Model:    "offline",
		}, nil
	}

	best, err := p.pickCandidate(prompt)
	if err != nil {
		return nil, err
	}

	return &ContentResponse{
		Text:     fmt.Sprintf(`{"retrieve": %s}`, best),
		Provider: ProviderOffline,
		Model:    "offline",
	}, nil
}

// pickCandidate scores each candidate document block by lexical overlap
// with the question text and returns the id of the best match. Ties go to
// the earliest candidate so repeated runs give identical answers.
func (p *OfflineProvider) pickCandidate(prompt string) (string, error) {
	headers := documentBlockRegex.FindAllStringSubmatchIndex(prompt, -1)
	if len(headers) == 0 {
		return "", fmt.Errorf("offline provider: no candidate documents in prompt")
	}

	question := questionText(prompt)
	queryTokens := tokenize(question)

	// The question trails the last candidate block and must not count
	// toward that block's score.
	limit := len(prompt)
	if idx := strings.LastIndex(prompt, "Question:"); idx >= 0 {
		limit = idx
	}

	bestID := prompt[headers[0][2]:headers[0][3]]
	bestScore := -1
	for i, match := range headers {
		id := prompt[match[2]:match[3]]
		start := match[1]
		end := limit
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		score := overlap(queryTokens, tokenize(prompt[start:end]))
		if score > bestScore {
			bestScore = score
			bestID = id
		}
	}

	return bestID, nil
}

// questionText extracts the question section from a retrieval prompt
func questionText(prompt string) string {
	idx := strings.LastIndex(prompt, "Question:")
	if idx < 0 {
		return prompt
	}
	return prompt[idx+len("Question:"):]
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(s)) {
		field = strings.Trim(field, `.,;:!?"'()[]{}`)
		if field != "" {
			tokens[field] = struct{}{}
		}
	}
	return tokens
}

func overlap(query, doc map[string]struct{}) int {
	count := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			count++
		}
	}
	return count
}
