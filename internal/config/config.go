// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// LLMProvider identifies a model backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMModelConfig defines the configuration for a single model endpoint.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// LLMConfig configures the tiered model routing. One shared client serves all
// in-flight pipelines.
type LLMConfig struct {
	Fast     LLMModelConfig `mapstructure:"fast" yaml:"fast"`
	Powerful LLMModelConfig `mapstructure:"powerful" yaml:"powerful"`
	// RequestsPerSecond bounds the aggregate call rate across tiers.
	// Zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// PipelineConfig bounds the extraction pipeline's inputs and behavior.
type PipelineConfig struct {
	// MaxPromptChars truncates paper text embedded in prompts.
	MaxPromptChars int `mapstructure:"max_prompt_chars" yaml:"max_prompt_chars"`
	// MinSectionChars skips sections too short to extract from.
	MinSectionChars int `mapstructure:"min_section_chars" yaml:"min_section_chars"`
	// AIDiagram asks the model for the diagram source directly before falling
	// back to deterministic templating.
	AIDiagram bool `mapstructure:"ai_diagram" yaml:"ai_diagram"`
	// Concurrency caps simultaneous pipeline runs for the extract command.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// SetDefaults initializes default values on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "paperlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- LLM --
	v.SetDefault("llm.fast.provider", "gemini")
	v.SetDefault("llm.fast.model", "gemini-2.5-flash")
	v.SetDefault("llm.fast.api_timeout", "2m")
	v.SetDefault("llm.fast.temperature", 0.2)
	v.SetDefault("llm.fast.max_tokens", 4096)
	v.SetDefault("llm.powerful.provider", "gemini")
	v.SetDefault("llm.powerful.model", "gemini-2.5-pro")
	v.SetDefault("llm.powerful.api_timeout", "2m")
	v.SetDefault("llm.powerful.temperature", 0.2)
	v.SetDefault("llm.powerful.max_tokens", 8192)
	v.SetDefault("llm.requests_per_second", 2.0)

	// -- Pipeline --
	v.SetDefault("pipeline.max_prompt_chars", 15000)
	v.SetDefault("pipeline.min_section_chars", 100)
	v.SetDefault("pipeline.ai_diagram", false)
	v.SetDefault("pipeline.concurrency", 4)
}

// NewConfigFromViper unmarshals and validates configuration from a viper
// instance. API keys may arrive via PAPERLENS_LLM_* environment variables.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("llm.fast.api_key", "PAPERLENS_API_KEY")
	v.BindEnv("llm.powerful.api_key", "PAPERLENS_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the environment directly when Unmarshal missed the binding.
	if cfg.LLM.Fast.APIKey == "" {
		cfg.LLM.Fast.APIKey = os.Getenv("PAPERLENS_API_KEY")
	}
	if cfg.LLM.Powerful.APIKey == "" {
		cfg.LLM.Powerful.APIKey = os.Getenv("PAPERLENS_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Pipeline.MaxPromptChars <= 0 {
		return fmt.Errorf("pipeline.max_prompt_chars must be a positive integer")
	}
	if c.Pipeline.MinSectionChars < 0 {
		return fmt.Errorf("pipeline.min_section_chars must not be negative")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be a positive integer")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("llm.requests_per_second must not be negative")
	}
	for name, m := range map[string]LLMModelConfig{"fast": c.LLM.Fast, "powerful": c.LLM.Powerful} {
		if m.APITimeout <= 0 {
			return fmt.Errorf("llm.%s.api_timeout must be a positive duration", name)
		}
		if m.Model == "" {
			return fmt.Errorf("llm.%s.model is required", name)
		}
	}
	return nil
}
