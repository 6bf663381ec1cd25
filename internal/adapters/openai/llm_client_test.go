package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"

	logger := zap.NewNop()
	return NewOpenAIClient(openai.NewClientWithConfig(cfg), "gpt-test", 100, 0.1, 0.9, 64, logger, utils.NewTextProcessor(logger))
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-123",
		"object": "chat.completion",
		"model":  "gpt-test",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	}
}

func TestOpenAIClient_Classify(t *testing.T) {
	var received openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"is_spam": true, "score": 0.85, "confidence": 0.9, "explanation": "prize scam"}`))
	})

	verdict, err := client.Classify(context.Background(), core.AnalysisInput{
		Sender:  "a@example.com",
		Subject: "You won",
		Content: "Claim your prize",
	})
	require.NoError(t, err)

	assert.True(t, verdict.IsSpam)
	assert.Equal(t, 0.85, verdict.Score)
	assert.Equal(t, "prize scam", verdict.Explanation)
	assert.Equal(t, "gpt-test", verdict.ModelUsed)
	assert.Equal(t, "chatcmpl-123", verdict.ProcessingID)

	assert.Equal(t, "gpt-test", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Contains(t, received.Messages[1].Content, "Subject: You won")
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	})

	_, err := client.Classify(context.Background(), core.AnalysisInput{})
	assert.ErrorContains(t, err, "empty response")
}

func TestOpenAIClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	})

	_, err := client.Classify(context.Background(), core.AnalysisInput{})
	assert.ErrorContains(t, err, "failed to create chat completion")
}
