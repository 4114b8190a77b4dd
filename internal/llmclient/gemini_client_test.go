package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

// setupGeminiClient rigs up a GeminiClient pointed at a mock HTTP server.
func setupGeminiClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Log("Warning: unexpected HTTP request in test.")
			w.WriteHeader(http.StatusNotFound)
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL

	client, err := NewGeminiClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	client.httpClient.Timeout = 5 * time.Second
	// No waits between retries in tests.
	client.backoffFactory = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return client
}

func geminiSuccessBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`, text)
}

func testRequest() schemas.GenerationRequest {
	return schemas.GenerationRequest{
		SystemPrompt: "You analyze research papers.",
		UserPrompt:   "Classify this paper.",
		Options:      schemas.GenerationOptions{Temperature: 0.2},
	}
}

func TestNewGeminiClient_DefaultEndpoint(t *testing.T) {
	cfg := getValidLLMConfig()
	cfg.Endpoint = ""

	client, err := NewGeminiClient(cfg, setupTestLogger(t))
	require.NoError(t, err)

	expected := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	assert.Equal(t, expected, client.endpoint)
	assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.backoffFactory)
}

func TestNewGeminiClient_MissingAPIKey(t *testing.T) {
	cfg := getValidLLMConfig()
	cfg.APIKey = ""

	client, err := NewGeminiClient(cfg, setupTestLogger(t))
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestGenerate_Success(t *testing.T) {
	var sawHeader atomic.Bool
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		sawHeader.Store(r.Header.Get("x-goog-api-key") == "test-api-key")
		io.WriteString(w, geminiSuccessBody("classified"))
	})

	got, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "classified", got)
	assert.True(t, sawHeader.Load(), "API key header must be set")
}

func TestGenerate_ForceJSONSetsMimeType(t *testing.T) {
	var captured geminiRequestPayload
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		io.WriteString(w, geminiSuccessBody("{}"))
	})

	req := testRequest()
	req.Options.ForceJSONFormat = true
	_, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "You analyze research papers.", captured.SystemInstruction.Parts[0].Text)
}

func TestGenerate_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int64
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, geminiSuccessBody("recovered"))
	})

	got, err := client.Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int64(3), attempts.Load())
}

func TestGenerate_PermanentOnClientError(t *testing.T) {
	var attempts atomic.Int64
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"bad request"}`)
	})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Equal(t, int64(1), attempts.Load(), "4xx must not be retried")
}

func TestGenerate_NoCandidatesIsPermanent(t *testing.T) {
	var attempts atomic.Int64
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		io.WriteString(w, `{"candidates":[]}`)
	})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
	assert.Equal(t, int64(1), attempts.Load())
}

func TestGenerate_SafetyBlockIsPermanent(t *testing.T) {
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`)
	})

	_, err := client.Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerate_ContextCancellation(t *testing.T) {
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		io.WriteString(w, geminiSuccessBody("late"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, testRequest())
	assert.Error(t, err)
}
