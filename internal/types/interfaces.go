package types

import "context"

// Generator produces text for a prompt within a token budget, given prior
// turns as conversational history.
type Generator interface {
	Generate(ctx context.Context, prompt string, tokenBudget int, history []Turn) (string, error)
}

// Retriever returns context text from a local corpus, or "" when nothing matches.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Searcher returns context text from the web.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// TopicExtractor labels text with topics.
type TopicExtractor interface {
	ExtractTopics(ctx context.Context, text string) ([]string, error)
}

// KeywordExtractor extracts keywords from text.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

// FollowupDeriver derives follow-up questions raised by a piece of text.
type FollowupDeriver interface {
	DeriveFollowups(ctx context.Context, text string) ([]string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, tokenBudget int, history []Turn) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, tokenBudget int, history []Turn) (string, error) {
	return f(ctx, prompt, tokenBudget, history)
}

// Capabilities bundles the content producers an agent calls. Only Generate is
// required; a nil augmentation or annotation capability is skipped.
type Capabilities struct {
	Generate Generator
	// External is the alternative provider selected per call; Generate is used when nil.
	External  Generator
	Retrieve  Retriever
	Search    Searcher
	Topics    TopicExtractor
	Keywords  KeywordExtractor
	Followups FollowupDeriver
}

// Generator returns the provider for a call, preferring External when asked
// and available.
func (c Capabilities) Generator(external bool) Generator {
	if external && c.External != nil {
		return c.External
	}
	return c.Generate
}
