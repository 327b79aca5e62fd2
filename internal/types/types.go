package types

import (
	"sort"
	"strings"
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message in a transcript.
type Turn struct {
	Timestamp     time.Time `json:"timestamp"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Topics        []string  `json:"topics,omitempty"`
	Keywords      []string  `json:"keywords,omitempty"`
	UsedWeb       bool      `json:"used_web"`
	UsedRetrieval bool      `json:"used_retrieval"`
}

// Augmentation selects which context sources feed a generation call.
type Augmentation struct {
	Web       bool `json:"web"`
	Retrieval bool `json:"retrieval"`
}

// Any reports whether any augmentation source is requested.
func (a Augmentation) Any() bool {
	return a.Web || a.Retrieval
}

// DialoguePair is one iteration of a self-play dialogue. User holds the
// second agent's output and Assistant the first agent's.
type DialoguePair struct {
	User      Turn `json:"user"`
	Assistant Turn `json:"assistant"`
}

// DialogueResult is a completed self-play dialogue.
type DialogueResult struct {
	ID         string         `json:"id"`
	Starter    string         `json:"starter"`
	Pairs      []DialoguePair `json:"pairs"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// NormalizeSet lowercases, trims and deduplicates values, returning them sorted.
// Empty input yields nil.
func NormalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
