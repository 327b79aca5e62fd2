package perception

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"subcon/internal/config"
	"subcon/internal/logging"
	"subcon/internal/types"
)

// GenAIGenerator generates text with the Gemini API.
type GenAIGenerator struct {
	client      *genai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewGenAIGenerator creates a Gemini generator. The model defaults to
// gemini-2.5-flash.
func NewGenAIGenerator(ctx context.Context, cfg config.ProviderConfig, timeout time.Duration) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model, temperature: cfg.Temperature, timeout: timeout}, nil
}

// Generate implements types.Generator.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string, tokenBudget int, history []types.Turn) (string, error) {
	timer := logging.StartTimer(logging.CategoryPerception, "genai:"+g.model)
	defer timer.StopWithThreshold(10 * time.Second)

	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	}
	if tokenBudget > 0 {
		cfg.MaxOutputTokens = int32(tokenBudget)
	}
	if g.temperature > 0 {
		temp := float32(g.temperature)
		cfg.Temperature = &temp
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai:%s: %w", g.model, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("genai:%s: empty response", g.model)
	}
	logging.PerceptionDebug("genai:%s produced %d chars", g.model, len(text))
	return stripThinking(text), nil
}
