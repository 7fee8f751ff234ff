package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderFantasy   = "fantasy"
)

// AnthropicGenerator calls the Anthropic Messages API directly.
type AnthropicGenerator struct {
	client *anthropic.Client
	config *Config
}

// NewAnthropic creates a generator backed by anthropic-sdk-go.
func NewAnthropic(opts ...Option) (*AnthropicGenerator, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(config.apiKey)}
	if config.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(config.baseURL))
	}
	client := anthropic.NewClient(reqOpts...)

	config.logger.Info("Anthropic generator initialized", "model", config.model, "max_tokens", config.maxTokens)

	return &AnthropicGenerator{client: &client, config: config}, nil
}

// Generate sends one user message at temperature 0 and returns the
// concatenated text blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.config.model),
		MaxTokens:   g.config.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		g.config.logger.Error("Anthropic API call failed", "error", err, "model", g.config.model)
		return "", &GenerationError{Provider: ProviderAnthropic, Err: err}
	}

	var b strings.Builder
	for _, block := range message.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(textBlock.Text)
		}
	}

	responseText := b.String()
	if responseText == "" {
		g.config.logger.Error("No text content in Anthropic response", "model", g.config.model, "stop_reason", message.StopReason)
		return "", &GenerationError{Provider: ProviderAnthropic, Err: fmt.Errorf("no text in response")}
	}

	g.config.logger.Debug("Anthropic response received",
		"model", g.config.model,
		"response_preview", truncate(responseText, 200))

	return responseText, nil
}
