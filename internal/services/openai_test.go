package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirinae-games/npc-engine/pkg/chat"
)

func TestOpenAIService_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, chat.ChatRoleSystem, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Oh, hello!  "}, "finish_reason": "stop"}],
			"usage": {
				"prompt_tokens": 420,
				"completion_tokens": 12,
				"total_tokens": 432,
				"prompt_tokens_details": {"cached_tokens": 384}
			}
		}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "gpt-4o-mini")

	resp, err := svc.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "[Rules]"},
		{Role: chat.ChatRoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Oh, hello!", resp.Message, "whitespace is trimmed")
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 420, resp.Usage.PromptTokens)
	assert.Equal(t, 12, resp.Usage.CompletionTokens)
	assert.Equal(t, 384, resp.Usage.CachedTokens)
	assert.Equal(t, 432, resp.Usage.Total())
}

func TestOpenAIService_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "gpt-4o-mini")

	_, err := svc.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestOpenAIService_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "chatcmpl-2", "choices": []}`))
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "gpt-4o-mini")

	_, err := svc.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIService_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	svc := NewOpenAIService("test-key", server.URL, "gpt-4o-mini")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Chat(ctx, []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}})
	assert.Error(t, err)
}
