package studyplan

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/config"
)

func TestOpenAICompleter_Complete(t *testing.T) {
	var got struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"schedule\":[]}"}}],
			"usage": {"prompt_tokens": 900, "completion_tokens": 334, "total_tokens": 1234}
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(config.LLMConfig{
		OpenAIKey:     "sk-test",
		OpenAIBaseURL: srv.URL + "/v1/",
		Model:         "gpt-4o-mini",
		Timeout:       5 * time.Second,
	})

	completion, err := c.Complete(context.Background(), "plan please")
	require.NoError(t, err)
	assert.Equal(t, `{"schedule":[]}`, completion.Text)
	assert.Equal(t, 1234, completion.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "plan please", got.Messages[1].Content)
}

func TestOpenAICompleter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(config.LLMConfig{OpenAIKey: "sk-test", OpenAIBaseURL: srv.URL, Model: "gpt-4o-mini"})
	_, err := c.Complete(context.Background(), "plan please")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai completion")
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	_, err := NewCompleter(context.Background(), config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)
}
