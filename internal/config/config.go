package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all subcon configuration.
type Config struct {
	Name string `yaml:"name"`

	// Generation providers
	LLM LLMConfig `yaml:"llm"`

	// Orchestrator: worker pool, flush loop, self-play defaults
	Cortex CortexConfig `yaml:"cortex"`

	// Durable record store
	Storage StorageConfig `yaml:"storage"`

	// Augmentation capabilities
	Research  ResearchConfig  `yaml:"research"`
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Topics, keywords, follow-up questions
	Annotation AnnotationConfig `yaml:"annotation"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "subcon",
		LLM: LLMConfig{
			Local: ProviderConfig{
				Provider: "ollama",
				Model:    "llama3.2",
				BaseURL:  "http://localhost:11434",
			},
			External: ProviderConfig{
				Provider: "openai",
				Model:    "gpt-4o-mini",
			},
			Timeout:       "120s",
			RetryAttempts: 3,
			RetryDelay:    "1s",
			HistoryLimit:  10,
		},
		Cortex: CortexConfig{
			MaxConcurrency:       3,
			FlushThreshold:       10,
			RetainWindow:         5,
			ContextWindow:        5,
			FlushInterval:        "250ms",
			MonitorInterval:      "1s",
			ChatTokenBudget:      500,
			SelfPlayTokenBudget:  75,
			SelfPlayIterations:   5,
			SelfPlayWeb:          true,
			SelfPlayRetrieval:    false,
			SubconsciousExternal: true,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "chats",
			SQLDriver: "sqlite",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "subcon",
			},
		},
		Research: ResearchConfig{
			Enabled:       true,
			MaxResults:    5,
			Timeout:       "15s",
			CacheSize:     128,
			CacheTTL:      "10m",
			Refine:        true,
			FetchContent:  true,
			FetchPages:    8,
			DuckDuckGoURL: "https://html.duckduckgo.com/html/",
			WikipediaURL:  "https://en.wikipedia.org/w/api.php",
		},
		Retrieval: RetrievalConfig{
			Enabled:   false,
			CorpusDir: "docs",
			ChunkSize: 800,
			TopK:      3,
			Watch:     true,
			Embedding: EmbeddingConfig{
				TaskType: "RETRIEVAL_QUERY",
			},
		},
		Annotation: AnnotationConfig{
			Mode:         "heuristic",
			Followups:    "heuristic",
			MaxFollowups: 3,
			MaxKeywords:  8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.External.APIKey = key
		c.LLM.External.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.External.APIKey = key
		c.LLM.External.Provider = "gemini"
		if c.LLM.External.Model == "" || c.LLM.External.Model == "gpt-4o-mini" {
			c.LLM.External.Model = "gemini-2.5-flash"
		}
		if c.Retrieval.Embedding.APIKey == "" {
			c.Retrieval.Embedding.APIKey = key
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.LLM.Local.BaseURL = host
	}

	if path := os.Getenv("SUBCON_STORE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Storage.Redis.Addr = addr
	}
}

// ValidProviders lists all supported generation providers.
var ValidProviders = []string{"ollama", "openai", "gemini"}

// ValidEmbeddingProviders lists the supported retrieval embedding engines.
var ValidEmbeddingProviders = []string{"genai", "ollama"}

// ValidBackends lists all supported record store backends.
var ValidBackends = []string{"file", "sqlite", "redis", "memory"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, p := range []ProviderConfig{c.LLM.Local, c.LLM.External} {
		if p.Provider == "" {
			continue
		}
		if !contains(ValidProviders, p.Provider) {
			return fmt.Errorf("invalid LLM provider: %s (valid: %v)", p.Provider, ValidProviders)
		}
	}
	if !contains(ValidBackends, c.Storage.Backend) {
		return fmt.Errorf("invalid storage backend: %s (valid: %v)", c.Storage.Backend, ValidBackends)
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLDriver != "sqlite" && c.Storage.SQLDriver != "sqlite3" {
		return fmt.Errorf("invalid sql driver: %s (valid: sqlite, sqlite3)", c.Storage.SQLDriver)
	}
	if p := c.Retrieval.Embedding.Provider; p != "" && !contains(ValidEmbeddingProviders, p) {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", p, ValidEmbeddingProviders)
	}
	if err := c.Cortex.validate(); err != nil {
		return err
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
