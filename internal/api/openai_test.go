package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req OpenAIRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "prompt", req.Messages[0].Content)
		}

		_ = json.NewEncoder(w).Encode(OpenAIResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "```json\n[\"Q1\"]\n```"}}},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", "gpt-4o", 500, 0.2, zerolog.Nop()).WithBaseURL(server.URL + "/")
	out, err := client.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `["Q1"]`, out)
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"http status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"api error": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			client := NewOpenAIClient("sk", "gpt-4o", 100, 0, zerolog.Nop()).WithBaseURL(server.URL)
			_, err := client.Complete(context.Background(), "prompt")
			require.Error(t, err)
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `["a","b"]`, CleanJSONResponse("```json\n[\"a\",\"b\"]\n```  "))
	assert.Equal(t, `[]`, CleanJSONResponse(" [] "))
}
