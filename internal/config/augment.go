package config

import "time"

// ResearchConfig configures web search.
type ResearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	MaxResults int    `yaml:"max_results"`
	Timeout    string `yaml:"timeout"`
	CacheSize  int    `yaml:"cache_size"`
	CacheTTL   string `yaml:"cache_ttl"`

	// Summarize, refine the query and search a second time.
	Refine bool `yaml:"refine"`

	// Fetch the main text of the top FetchPages results.
	FetchContent bool `yaml:"fetch_content"`
	FetchPages   int  `yaml:"fetch_pages"`

	DuckDuckGoURL string `yaml:"duckduckgo_url"`
	WikipediaURL  string `yaml:"wikipedia_url"`
}

// RetrievalConfig configures corpus retrieval.
type RetrievalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	CorpusDir string `yaml:"corpus_dir"`
	ChunkSize int    `yaml:"chunk_size"`
	TopK      int    `yaml:"top_k"`
	Watch     bool   `yaml:"watch"`

	// Keyword scoring when Embedding.Provider is empty.
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// EmbeddingConfig selects the embedding engine used for retrieval scoring.
type EmbeddingConfig struct {
	Provider string `yaml:"provider,omitempty"` // genai, ollama
	Model    string `yaml:"model,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"` // ollama only
	APIKey   string `yaml:"api_key,omitempty"`  // genai only
	TaskType string `yaml:"task_type,omitempty"`
}

// AnnotationConfig configures topic, keyword and follow-up extraction.
type AnnotationConfig struct {
	Mode         string `yaml:"mode"`      // heuristic, llm
	Followups    string `yaml:"followups"` // heuristic, llm
	MaxFollowups int    `yaml:"max_followups"`
	MaxKeywords  int    `yaml:"max_keywords"`
}

// GetResearchTimeout returns the per-source HTTP timeout.
func (c *Config) GetResearchTimeout() time.Duration {
	return parseDuration(c.Research.Timeout, 15*time.Second)
}

// GetResearchCacheTTL returns how long search results stay cached.
func (c *Config) GetResearchCacheTTL() time.Duration {
	return parseDuration(c.Research.CacheTTL, 10*time.Minute)
}
