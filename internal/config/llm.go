package config

import "time"

// LLMConfig configures the local and external generation providers.
type LLMConfig struct {
	Local    ProviderConfig `yaml:"local"`
	External ProviderConfig `yaml:"external"`

	Timeout       string `yaml:"timeout"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    string `yaml:"retry_delay"`

	// Most recent prior turns passed to a provider as history.
	HistoryLimit int `yaml:"history_limit"`
}

// ProviderConfig selects one generation backend.
type ProviderConfig struct {
	Provider    string  `yaml:"provider"` // ollama, openai, gemini
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Configured reports whether the provider has enough settings to be built.
func (p ProviderConfig) Configured() bool {
	switch p.Provider {
	case "":
		return false
	case "ollama":
		return p.Model != ""
	default:
		return p.Model != "" && p.APIKey != ""
	}
}

// GetLLMTimeout returns the per-request timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetRetryDelay returns the base backoff between generation attempts.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDuration(c.LLM.RetryDelay, time.Second)
}
