package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/mosaic/backend/models"
)

func TestCompleteSendsMessagesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req models.AnthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-haiku-20240307", req.Model)
		assert.Equal(t, 1500, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "a generated narrative"}},
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.Client(), "test-key", srv.URL, "claude-3-haiku-20240307")
	text, err := client.Complete(context.Background(), "analyze these stories", 1500)

	require.NoError(t, err)
	assert.Equal(t, "a generated narrative", text)
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClaudeClient(http.DefaultClient, "", "http://unused", "claude-3-haiku-20240307")

	_, err := client.Complete(context.Background(), "prompt", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"type":  "error",
			"error": map[string]string{"type": "invalid_request_error", "message": "max_tokens is too large"},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.Client(), "test-key", srv.URL, "claude-3-haiku-20240307")
	_, err := client.Complete(context.Background(), "prompt", 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_request_error")
	assert.Contains(t, err.Error(), "max_tokens is too large")
}

func TestCompleteRejectsEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"content": []interface{}{}})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.Client(), "test-key", srv.URL, "claude-3-haiku-20240307")
	_, err := client.Complete(context.Background(), "prompt", 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text content")
}

func TestCompleteEnforcesPerMinuteCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		})
	}))
	defer srv.Close()

	client := NewClaudeClient(srv.Client(), "test-key", srv.URL, "claude-3-haiku-20240307")
	for i := 0; i < 20; i++ {
		_, err := client.Complete(context.Background(), "prompt", 100)
		require.NoError(t, err)
	}

	_, err := client.Complete(context.Background(), "prompt", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
