// Package llm wraps the text-generation services used to write, repair and
// explain Cypher queries.
package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"
)

const (
	defaultModel     = "claude-haiku-4-5"
	defaultMaxTokens = 4000
)

// Request is a single completion request. Temperature is always 0.
type Request struct {
	System string
	Prompt string
}

// Generator produces one text completion per request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GenerationError reports a transport or service failure from a provider.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config holds the settings shared by every provider.
type Config struct {
	apiKey    string
	model     string
	maxTokens int64
	baseURL   string
	logger    *slog.Logger
}

// Option is a functional option for configuring a provider.
type Option func(*Config) error

// WithAPIKey sets the provider API key
func WithAPIKey(apiKey string) Option {
	return func(c *Config) error {
		if apiKey == "" {
			return fmt.Errorf("API key cannot be empty")
		}
		c.apiKey = apiKey
		return nil
	}
}

// WithModel sets the model identifier (default: claude-haiku-4-5)
func WithModel(model string) Option {
	return func(c *Config) error {
		if model == "" {
			return fmt.Errorf("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithMaxTokens caps the completion length
func WithMaxTokens(n int64) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", n)
		}
		c.maxTokens = n
		return nil
	}
}

// WithBaseURL points the client at a different API endpoint
func WithBaseURL(url string) Option {
	return func(c *Config) error {
		c.baseURL = url
		return nil
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

func newConfig(opts []Option) (*Config, error) {
	config := &Config{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if config.apiKey == "" {
		return nil, fmt.Errorf("API key is required (use WithAPIKey)")
	}
	return config, nil
}

// New builds the generator for the named provider: "anthropic" (default) or
// "fantasy".
func New(ctx context.Context, provider string, opts ...Option) (Generator, error) {
	switch provider {
	case "", ProviderAnthropic:
		return NewAnthropic(opts...)
	case ProviderFantasy:
		return NewFantasy(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// truncate shortens s for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
