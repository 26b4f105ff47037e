package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeminiBackend(t *testing.T, handler http.HandlerFunc) *GeminiBackend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend, err := NewGeminiBackend(context.Background(), GeminiConfig{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		Temperature: 0.9,
		MaxTokens:   60,
		HTTPClient:  server.Client(),
	}, nil)
	require.NoError(t, err)
	return backend
}

func TestGeminiBackendGenerate(t *testing.T) {
	t.Parallel()

	var got map[string]any
	backend := newTestGeminiBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"'Lee brings the epic energy of a loading bar.'"}]},"finishReason":"STOP"}]}`))
	})

	text, err := backend.Generate(context.Background(), Attempt{
		Credential: "gemini",
		Model:      "gemini-test",
		Prompt:     "roast Lee",
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lee brings the epic energy of a loading bar.", text)

	genCfg, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok, "request: %v", got)
	assert.EqualValues(t, 60, genCfg["maxOutputTokens"])
	assert.InDelta(t, 0.9, genCfg["temperature"], 0.0001)
}

func TestGeminiBackendErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "api error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			},
			check: func(t *testing.T, err error) {
				var httpErr *HTTPError
				require.ErrorAs(t, err, &httpErr)
				assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
				assert.Equal(t, "quota exceeded", httpErr.Body)
			},
		},
		{
			name: "no candidates",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name: "blocked prompt",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			backend := newTestGeminiBackend(t, tt.handler)
			_, err := backend.Generate(context.Background(), Attempt{
				Credential: "gemini",
				Model:      "gemini-test",
				Prompt:     "roast",
				Timeout:    100 * time.Millisecond,
			})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
