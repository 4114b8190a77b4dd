package llmclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/config"
)

// mockClient is a canned-response implementation of schemas.LLMClient.
type mockClient struct {
	response string
	err      error
	calls    atomic.Int64
	closed   atomic.Bool
}

func (m *mockClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	m.calls.Add(1)
	return m.response, m.err
}

func (m *mockClient) Close() error {
	m.closed.Store(true)
	return nil
}

func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

func getValidLLMConfig() config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:    config.ProviderGemini,
		Model:       "gemini-2.5-flash",
		APIKey:      "test-api-key",
		APITimeout:  10 * time.Second,
		Temperature: 0.2,
		MaxTokens:   1024,
	}
}
