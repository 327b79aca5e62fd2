// Package perception turns prompts into text through the configured
// generation providers. Providers are built once into a Registry; nothing is
// cached at package level.
package perception

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"subcon/internal/config"
	"subcon/internal/logging"
	"subcon/internal/types"
)

// Provider names a generation backend.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Registry names under which BuildRegistry installs providers.
const (
	LocalName    = "local"
	ExternalName = "external"
)

// SystemPrompt frames every generation request.
const SystemPrompt = "You are a helpful, precise, and accurate assistant."

// Registry maps provider names to generators.
type Registry struct {
	mu   sync.RWMutex
	gens map[string]types.Generator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{gens: make(map[string]types.Generator)}
}

// Register adds a generator under name. Names are unique.
func (r *Registry) Register(name string, g types.Generator) error {
	if name == "" || g == nil {
		return fmt.Errorf("register provider: name and generator are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.gens[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.gens[name] = g
	return nil
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (types.Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gens[name]
	return g, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.gens))
	for name := range r.gens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Local returns the local generator, falling back to the external one.
func (r *Registry) Local() types.Generator {
	if g, ok := r.Get(LocalName); ok {
		return g
	}
	g, _ := r.Get(ExternalName)
	return g
}

// External returns the external generator, or nil.
func (r *Registry) External() types.Generator {
	g, _ := r.Get(ExternalName)
	return g
}

// NewGenerator builds the generator cfg selects.
func NewGenerator(ctx context.Context, cfg config.ProviderConfig, timeout time.Duration) (types.Generator, error) {
	switch Provider(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaGenerator(cfg, timeout)
	case ProviderOpenAI:
		return NewOpenAIGenerator(cfg, timeout)
	case ProviderGemini:
		return NewGenAIGenerator(ctx, cfg, timeout)
	default:
		return nil, fmt.Errorf("unsupported provider: %q", cfg.Provider)
	}
}

// BuildRegistry builds the local and external providers that cfg configures.
// At least one must be configured.
func BuildRegistry(ctx context.Context, cfg *config.Config) (*Registry, error) {
	reg := NewRegistry()
	slots := []struct {
		name string
		pc   config.ProviderConfig
	}{
		{LocalName, cfg.LLM.Local},
		{ExternalName, cfg.LLM.External},
	}
	for _, s := range slots {
		if !s.pc.Configured() {
			logging.PerceptionDebug("provider %s not configured (%s)", s.name, s.pc.Provider)
			continue
		}
		g, err := NewGenerator(ctx, s.pc, cfg.GetLLMTimeout())
		if err != nil {
			return nil, fmt.Errorf("build %s provider: %w", s.name, err)
		}
		if err := reg.Register(s.name, g); err != nil {
			return nil, err
		}
		logging.Perception("Registered %s provider %s/%s", s.name, s.pc.Provider, s.pc.Model)
	}
	if len(reg.Names()) == 0 {
		return nil, fmt.Errorf("no generation provider configured")
	}
	return reg, nil
}

// stripThinking removes <think>...</think> blocks some local reasoning
// models emit ahead of the answer.
func stripThinking(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end < 0 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
