// -----------------------------------------------------------------------
// Retrieval Prompt - candidate documents plus question, one call per query
// -----------------------------------------------------------------------

package retrieval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// retrievalSystemPrompt pins the model to pure selection with a strict JSON
// answer shape so parsing stays mechanical.
const retrievalSystemPrompt = `You are a document retrieval assistant.
You will be given several candidate documents, each preceded by a header line of the form "Document <id>:", followed by a question.
Select the single document most relevant to answering the question.
Respond with JSON only, exactly: {"retrieve": <id>} where <id> is the id of the selected document.
Do not add explanations, markdown fences or any other text.`

// BuildPrompt renders the candidate documents and the query into the user
// message. Candidates appear in the caller's order under "Document <id>:"
// headers, the question last after a "Question:" marker.
func BuildPrompt(query string, candidateIDs []int, bodies map[int]string) string {
	var b strings.Builder
	for _, id := range candidateIDs {
		fmt.Fprintf(&b, "Document %d:\n%s\n\n", id, bodies[id])
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// retrieveResponse is the expected answer shape
type retrieveResponse struct {
	Retrieve int `json:"retrieve"`
}

var jsonObjectRegex = regexp.MustCompile(`\{[^{}]*"retrieve"[^{}]*\}`)

// ParseSelection extracts the selected document id from the model output
// and checks it against the candidate set. Models occasionally wrap the
// JSON in prose or fences, so the first matching object in the text wins.
func ParseSelection(text string, candidateIDs []int) (int, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return 0, fmt.Errorf("empty model response")
	}

	candidate := raw
	if !strings.HasPrefix(candidate, "{") {
		match := jsonObjectRegex.FindString(raw)
		if match == "" {
			return 0, fmt.Errorf("no retrieve object in model response: %q", truncate(raw, 120))
		}
		candidate = match
	}

	var parsed retrieveResponse
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse model response %q: %w", truncate(candidate, 120), err)
	}

	for _, id := range candidateIDs {
		if parsed.Retrieve == id {
			return parsed.Retrieve, nil
		}
	}
	return 0, fmt.Errorf("selected id %d is not among the candidates", parsed.Retrieve)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
