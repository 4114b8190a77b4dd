// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/config"
)

// NewClient builds a single tier client for the configured provider.
func NewClient(cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}
}

// NewRouterFromConfig wires the fast and powerful tier clients behind a rate
// limited router, the single shared client handle owned by the process.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Router, error) {
	fast, err := NewClient(cfg.Fast, logger)
	if err != nil {
		return nil, fmt.Errorf("building fast tier client: %w", err)
	}
	powerful, err := NewClient(cfg.Powerful, logger)
	if err != nil {
		fast.Close()
		return nil, fmt.Errorf("building powerful tier client: %w", err)
	}
	return NewRouter(logger, fast, powerful, cfg.RequestsPerSecond)
}
