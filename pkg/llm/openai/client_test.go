package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/run-bigpig/chatmod/pkg/llm/openai"
	"github.com/run-bigpig/chatmod/pkg/logging"
	"github.com/run-bigpig/chatmod/pkg/retry"
	gopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	response := gopenai.ChatCompletionResponse{
		Choices: []gopenai.ChatCompletionChoice{
			{
				Message: gopenai.ChatCompletionMessage{
					Content: content,
					Role:    "assistant",
				},
			},
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		t.Fatalf("Failed to encode response: %v", err)
	}
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
		},
	})
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header with test-key")
		}

		var reqBody gopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}

		assert.Equal(t, "gpt-4", reqBody.Model)
		assert.Equal(t, 150, reqBody.MaxTokens)
		assert.InDelta(t, 0.7, reqBody.Temperature, 1e-6)
		require.Len(t, reqBody.Messages, 2)
		assert.Equal(t, "system", reqBody.Messages[0].Role)
		assert.Equal(t, "be nice", reqBody.Messages[0].Content)
		assert.Equal(t, "user", reqBody.Messages[1].Role)
		assert.Equal(t, "test prompt", reqBody.Messages[1].Content)

		writeCompletion(t, w, "test response")
	}))
	defer server.Close()

	client := openai.NewClient("test-key", server.URL, server.Client(),
		openai.WithModel("gpt-4"),
		openai.WithLogger(logging.Nop()),
	)

	resp, err := client.Complete(context.Background(), "be nice", "test prompt", 150, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "test response", resp)
	assert.Equal(t, "openai", client.Name())
}

func TestCompleteDefaultModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody gopenai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-3.5-turbo", reqBody.Model)
		writeCompletion(t, w, "ok")
	}))
	defer server.Close()

	client := openai.NewClient("test-key", server.URL, nil, openai.WithLogger(logging.Nop()))
	_, err := client.Complete(context.Background(), "sys", "hi", 10, 0.7)
	require.NoError(t, err)
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Incorrect API key provided")
	}))
	defer server.Close()

	client := openai.NewClient("bad-key", server.URL, server.Client(), openai.WithLogger(logging.Nop()))

	_, err := client.Complete(context.Background(), "sys", "hi", 10, 0.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gopenai.ChatCompletionResponse{})
	}))
	defer server.Close()

	client := openai.NewClient("test-key", server.URL, server.Client(), openai.WithLogger(logging.Nop()))

	_, err := client.Complete(context.Background(), "sys", "hi", 10, 0.7)
	assert.ErrorIs(t, err, openai.ErrNoChoices)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			writeAPIError(w, http.StatusServiceUnavailable, "overloaded")
			return
		}
		writeCompletion(t, w, "third time lucky")
	}))
	defer server.Close()

	client := openai.NewClient("test-key", server.URL, server.Client(),
		openai.WithLogger(logging.Nop()),
		openai.WithRetry(
			retry.WithMaxAttempts(3),
			retry.WithInitialInterval(time.Millisecond),
			retry.WithMaximumInterval(2*time.Millisecond),
		),
	)

	resp, err := client.Complete(context.Background(), "sys", "hi", 10, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp)
	assert.Equal(t, 3, calls)
}

func TestCompleteDoesNotRetryAuthErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeAPIError(w, http.StatusUnauthorized, "nope")
	}))
	defer server.Close()

	client := openai.NewClient("test-key", server.URL, server.Client(),
		openai.WithLogger(logging.Nop()),
		openai.WithRetry(
			retry.WithMaxAttempts(5),
			retry.WithInitialInterval(time.Millisecond),
		),
	)

	_, err := client.Complete(context.Background(), "sys", "hi", 10, 0.7)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
