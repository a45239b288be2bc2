package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CompletionConfig{
		Endpoint:    srv.URL,
		APIKey:      "key-1",
		Deployment:  "gpt-router",
		APIVersion:  "2024-10-01-preview",
		MaxTokens:   3000,
		Temperature: 0.3,
		TopP:        0.95,
	}, srv.Client(), zap.NewNop())
}

func TestRequestCompletion(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-router/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-10-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "key-1", r.Header.Get("api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"{\"routing\":{}}"}}],
			"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}
		}`))
	})

	got, err := client.RequestCompletion(context.Background(), "route this")
	require.NoError(t, err)

	assert.Equal(t, `{"routing":{}}`, got.Text)
	assert.Equal(t, domain.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, got.Usage)

	assert.Equal(t, float64(3000), body["max_tokens"])
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, 0.95, body["top_p"])
	assert.Equal(t, float64(0), body["frequency_penalty"])
	assert.Equal(t, float64(0), body["presence_penalty"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": SystemInstruction}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "route this"}, messages[1])
}

func TestRequestCompletionFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"no choices": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		},
		"missing message": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{}]}`))
		},
		"malformed body": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"error status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(t, handler).RequestCompletion(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeUpstream))
		})
	}
}

func TestRequestCompletionErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"content filtered"}}`))
	})

	_, err := client.RequestCompletion(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content filtered")
}

func TestPing(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(10), body["max_tokens"])
		assert.NotContains(t, body, "temperature")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, 1, calls)

	down := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.Error(t, down.Ping(context.Background()))
}
