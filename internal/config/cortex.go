package config

import (
	"fmt"
	"time"
)

// CortexConfig configures the orchestrator.
type CortexConfig struct {
	// Maximum self-play dialogues running at once.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Conscious transcript length that triggers a flush, and the number of
	// most recent turns kept in memory afterwards.
	FlushThreshold int `yaml:"flush_threshold"`
	RetainWindow   int `yaml:"retain_window"`

	// Most recent conscious turns used as prior context for Chat.
	ContextWindow int `yaml:"context_window"`

	FlushInterval   string `yaml:"flush_interval"`
	MonitorInterval string `yaml:"monitor_interval"`

	ChatTokenBudget      int  `yaml:"chat_token_budget"`
	SelfPlayTokenBudget  int  `yaml:"self_play_token_budget"`
	SelfPlayIterations   int  `yaml:"self_play_iterations"`
	SelfPlayWeb          bool `yaml:"self_play_web"`
	SelfPlayRetrieval    bool `yaml:"self_play_retrieval"`
	SubconsciousExternal bool `yaml:"subconscious_external"`
}

func (c CortexConfig) validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("cortex.max_concurrency must be >= 1, got %d", c.MaxConcurrency)
	}
	if c.RetainWindow < 0 || c.FlushThreshold <= c.RetainWindow {
		return fmt.Errorf("cortex.flush_threshold (%d) must exceed cortex.retain_window (%d)", c.FlushThreshold, c.RetainWindow)
	}
	if c.SelfPlayIterations < 0 {
		return fmt.Errorf("cortex.self_play_iterations must be >= 0, got %d", c.SelfPlayIterations)
	}
	return nil
}

// GetFlushInterval returns the flush loop poll interval.
func (c *Config) GetFlushInterval() time.Duration {
	return parseDuration(c.Cortex.FlushInterval, 250*time.Millisecond)
}

// GetMonitorInterval returns the task registry sweep interval.
func (c *Config) GetMonitorInterval() time.Duration {
	return parseDuration(c.Cortex.MonitorInterval, time.Second)
}
