package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/TwinBot/internal/config"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func testConfig(baseURL string) config.Config {
	return config.Config{
		GroqAPIKey:     "gsk_test",
		GroqBaseURL:    baseURL,
		LLMModel:       "llama-3.1-70b-versatile",
		LLMTemperature: 0.9,
		LLMMaxTokens:   800,
	}
}

func TestCompleteSendsFixedParameters(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama-3.1-70b-versatile",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "haan bhai 😎"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL+"/v1"), nil)
	reply, err := client.Complete(context.Background(), "\nUser: kya haal\nTwin: mast", "aur bata")
	require.NoError(t, err)
	assert.Equal(t, "haan bhai 😎", reply)

	assert.Equal(t, "llama-3.1-70b-versatile", got.Model)
	assert.InDelta(t, 0.9, got.Temperature, 1e-9)
	assert.Equal(t, 800, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Past: \nUser: kya haal\nTwin: mast")
	assert.Contains(t, got.Messages[0].Content, "User says: aur bata")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "aur bata", got.Messages[1].Content)
}

func TestCompleteDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	_, err := client.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), nil)
	_, err := client.Complete(context.Background(), "", "hi")
	require.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("old stuff", "naya msg")
	assert.Contains(t, prompt, "You are Twin — exact clone of this user.")
	assert.Contains(t, prompt, "Talk 100% like them")
	assert.Contains(t, prompt, "Past: old stuff\n")
	assert.Contains(t, prompt, "User says: naya msg\n")
	assert.Contains(t, prompt, "Reply in their style only.")
}
