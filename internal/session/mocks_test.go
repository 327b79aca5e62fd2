package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"subcon/internal/types"
)

// GenerateCall records one call to MockGenerator.
type GenerateCall struct {
	Prompt      string
	TokenBudget int
	History     []types.Turn
}

// MockGenerator implements types.Generator for testing. Without GenerateFunc
// it answers "answer <n>" where n is the zero-based call index.
type MockGenerator struct {
	mu           sync.Mutex
	calls        []GenerateCall
	GenerateFunc func(call int, prompt string) (string, error)
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, tokenBudget int, history []types.Turn) (string, error) {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, GenerateCall{Prompt: prompt, TokenBudget: tokenBudget, History: history})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.GenerateFunc != nil {
		return m.GenerateFunc(idx, prompt)
	}
	return fmt.Sprintf("answer %d", idx), nil
}

func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockRetriever implements types.Retriever for testing.
type MockRetriever struct {
	mu           sync.Mutex
	Queries      []string
	RetrieveFunc func(query string) (string, error)
}

func (m *MockRetriever) Retrieve(_ context.Context, query string) (string, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(query)
	}
	return "retrieved context", nil
}

// MockSearcher implements types.Searcher for testing.
type MockSearcher struct {
	mu         sync.Mutex
	Queries    []string
	SearchFunc func(query string) (string, error)
}

func (m *MockSearcher) Search(_ context.Context, query string) (string, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(query)
	}
	return "web context", nil
}

// MockAnnotator implements both types.TopicExtractor and types.KeywordExtractor.
type MockAnnotator struct {
	TopicsFunc   func(text string) ([]string, error)
	KeywordsFunc func(text string) ([]string, error)
}

func (m *MockAnnotator) ExtractTopics(_ context.Context, text string) ([]string, error) {
	if m.TopicsFunc != nil {
		return m.TopicsFunc(text)
	}
	return []string{"science_&_technology"}, nil
}

func (m *MockAnnotator) ExtractKeywords(_ context.Context, text string) ([]string, error) {
	if m.KeywordsFunc != nil {
		return m.KeywordsFunc(text)
	}
	return []string{"Keyword", "keyword", "other"}, nil
}

func testCaps(gen *MockGenerator) types.Capabilities {
	ann := &MockAnnotator{}
	return types.Capabilities{
		Generate: gen,
		Retrieve: &MockRetriever{},
		Search:   &MockSearcher{},
		Topics:   ann,
		Keywords: ann,
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
}
