package perception

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"subcon/internal/config"
	"subcon/internal/logging"
	"subcon/internal/types"
)

// LangChainGenerator adapts a langchaingo model to types.Generator.
type LangChainGenerator struct {
	model       llms.Model
	name        string
	temperature float64
	timeout     time.Duration
}

// NewLangChainGenerator wraps model. name is used in logs only.
func NewLangChainGenerator(model llms.Model, name string, temperature float64, timeout time.Duration) *LangChainGenerator {
	return &LangChainGenerator{model: model, name: name, temperature: temperature, timeout: timeout}
}

// NewOpenAIGenerator builds an OpenAI chat generator.
func NewOpenAIGenerator(cfg config.ProviderConfig, timeout time.Duration) (*LangChainGenerator, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewLangChainGenerator(llm, "openai:"+cfg.Model, cfg.Temperature, timeout), nil
}

// NewOllamaGenerator builds a generator against a local Ollama server.
func NewOllamaGenerator(cfg config.ProviderConfig, timeout time.Duration) (*LangChainGenerator, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewLangChainGenerator(llm, "ollama:"+cfg.Model, cfg.Temperature, timeout), nil
}

// Generate implements types.Generator. History turns become human and AI
// messages between the system prompt and the new prompt.
func (g *LangChainGenerator) Generate(ctx context.Context, prompt string, tokenBudget int, history []types.Turn) (string, error) {
	timer := logging.StartTimer(logging.CategoryPerception, g.name)
	defer timer.StopWithThreshold(10 * time.Second)

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, SystemPrompt))
	for _, t := range history {
		role := llms.ChatMessageTypeHuman
		if t.Role == types.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, t.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	var opts []llms.CallOption
	if tokenBudget > 0 {
		opts = append(opts, llms.WithMaxTokens(tokenBudget))
	}
	if g.temperature > 0 {
		opts = append(opts, llms.WithTemperature(g.temperature))
	}

	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", g.name)
	}
	text := stripThinking(resp.Choices[0].Content)
	logging.PerceptionDebug("%s produced %d chars (budget %d, history %d)", g.name, len(text), tokenBudget, len(history))
	return text, nil
}
