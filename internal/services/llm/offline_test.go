package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/reperio/internal/interfaces"
)

func retrievalPrompt(query string, docs map[int]string, order []int) string {
	prompt := ""
	for _, id := range order {
		prompt += fmt.Sprintf("Document %d:\n%s\n\n", id, docs[id])
	}
	return prompt + "Question: " + query
}

func TestOfflineProviderVisionRequest(t *testing.T) {
	provider := NewOfflineProvider(arbor.NewLogger())

	resp, err := provider.GenerateContent(context.Background(), &ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "describe this page"}},
		Images:   []ImagePart{{Data: []byte{0x89}, MIMEType: "image/png"}},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
	assert.Equal(t, ProviderOffline, resp.Provider)
}

func TestOfflineProviderPicksBestLexicalMatch(t *testing.T) {
	provider := NewOfflineProvider(arbor.NewLogger())

	docs := map[int]string{
		101: "To file an insurance claim, contact the claim process hotline and submit the claim form.",
		205: "Quarterly revenue grew by twelve percent across all finance divisions.",
		309: "Frequently asked questions about account registration and password reset.",
	}

	tests := []struct {
		name  string
		query string
		order []int
		want  int
	}{
		{name: "Claim Query", query: "what is the claim process", order: []int{205, 101, 309}, want: 101},
		{name: "Revenue Query", query: "quarterly revenue growth", order: []int{101, 205, 309}, want: 205},
		{name: "Password Query", query: "how do I reset my password", order: []int{101, 205, 309}, want: 309},
		{name: "Best Match Last", query: "password reset questions", order: []int{101, 309}, want: 309},
		{name: "Best Match First", query: "claim form hotline", order: []int{101, 205}, want: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := provider.GenerateContent(context.Background(), &ContentRequest{
				Messages: []interfaces.Message{
					{Role: "user", Content: retrievalPrompt(tt.query, docs, tt.order)},
				},
			})
			require.NoError(t, err)

			var parsed struct {
				Retrieve int `json:"retrieve"`
			}
			require.NoError(t, json.Unmarshal([]byte(resp.Text), &parsed))
			assert.Equal(t, tt.want, parsed.Retrieve)
		})
	}
}

func TestOfflineProviderDeterministic(t *testing.T) {
	provider := NewOfflineProvider(arbor.NewLogger())

	prompt := retrievalPrompt("unrelated nonsense query", map[int]string{
		1: "alpha beta",
		2: "gamma delta",
	}, []int{1, 2})

	var first string
	for i := 0; i < 5; i++ {
		resp, err := provider.GenerateContent(context.Background(), &ContentRequest{
			Messages: []interfaces.Message{{Role: "user", Content: prompt}},
		})
		require.NoError(t, err)
		if i == 0 {
			first = resp.Text
			continue
		}
		assert.Equal(t, first, resp.Text)
	}
}

func TestOfflineProviderRejectsEmptyPrompt(t *testing.T) {
	provider := NewOfflineProvider(arbor.NewLogger())

	_, err := provider.GenerateContent(context.Background(), &ContentRequest{})
	assert.Error(t, err)

	_, err = provider.GenerateContent(context.Background(), &ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "no candidates here"}},
	})
	assert.Error(t, err)
}
