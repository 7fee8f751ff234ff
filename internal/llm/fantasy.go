package llm

import (
	"context"
	"fmt"

	"charm.land/fantasy"
	fantasyanthropic "charm.land/fantasy/providers/anthropic"
)

// FantasyGenerator routes completions through a Fantasy agent without tools.
type FantasyGenerator struct {
	model  fantasy.LanguageModel
	config *Config
}

// NewFantasy creates a generator backed by the Fantasy Anthropic provider.
func NewFantasy(ctx context.Context, opts ...Option) (*FantasyGenerator, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	model, err := NewFantasyModel(ctx, config.apiKey, config.model, config.baseURL)
	if err != nil {
		return nil, err
	}

	config.logger.Info("Fantasy generator initialized", "model", config.model)

	return &FantasyGenerator{model: model, config: config}, nil
}

// NewFantasyModel opens a Fantasy language model on the Anthropic provider.
// The chat agent shares it.
func NewFantasyModel(ctx context.Context, apiKey, modelID, baseURL string) (fantasy.LanguageModel, error) {
	providerOpts := []fantasyanthropic.Option{fantasyanthropic.WithAPIKey(apiKey)}
	if baseURL != "" {
		providerOpts = append(providerOpts, fantasyanthropic.WithBaseURL(baseURL))
	}

	provider, err := fantasyanthropic.New(providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model %s: %w", modelID, err)
	}
	return model, nil
}

// Generate runs a single-turn agent call at temperature 0.
func (g *FantasyGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var agentOpts []fantasy.AgentOption
	if req.System != "" {
		agentOpts = append(agentOpts, fantasy.WithSystemPrompt(req.System))
	}
	agent := fantasy.NewAgent(g.model, agentOpts...)

	temperature := 0.0
	maxTokens := g.config.maxTokens
	result, err := agent.Generate(ctx, fantasy.AgentCall{
		Prompt:          req.Prompt,
		Temperature:     &temperature,
		MaxOutputTokens: &maxTokens,
	})
	if err != nil {
		g.config.logger.Error("Fantasy agent call failed", "error", err, "model", g.config.model)
		return "", &GenerationError{Provider: ProviderFantasy, Err: err}
	}

	text := result.Response.Content.Text()
	if text == "" {
		return "", &GenerationError{Provider: ProviderFantasy, Err: fmt.Errorf("no text in response")}
	}

	g.config.logger.Debug("Fantasy response received",
		"model", g.config.model,
		"response_preview", truncate(text, 200))

	return text, nil
}
