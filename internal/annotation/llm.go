package annotation

import (
	"context"
	"fmt"
	"strings"

	"subcon/internal/logging"
	"subcon/internal/types"
)

const (
	annotationBudget = 60
	followupBudget   = 120
)

// LLMAnnotator asks a generator for topics and keywords as "||" separated
// lists.
type LLMAnnotator struct {
	Gen         types.Generator
	MaxKeywords int
}

func (a *LLMAnnotator) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf("List up to three short topic labels for the following text. "+
		"Reply with the labels only, separated by ||.\n\nText: %s", text)
	out, err := a.Gen.Generate(ctx, prompt, annotationBudget, nil)
	if err != nil {
		return nil, fmt.Errorf("topic generation: %w", err)
	}
	return capList(ParseList(out), 3), nil
}

func (a *LLMAnnotator) ExtractKeywords(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf("Extract the keywords of the following text. "+
		"Reply with the keywords only, separated by ||.\n\nText: %s", text)
	out, err := a.Gen.Generate(ctx, prompt, annotationBudget, nil)
	if err != nil {
		return nil, fmt.Errorf("keyword generation: %w", err)
	}
	return capList(ParseList(out), a.MaxKeywords), nil
}

// ParseList splits model output on "||", trimming whitespace and dropping
// empty and repeated entries. Order of first occurrence is kept.
func ParseList(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, "||") {
		part = strings.Trim(strings.TrimSpace(part), `"'.`)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return out
}

// LLMFollowups asks a generator for follow-up questions, one per line.
type LLMFollowups struct {
	Gen types.Generator
	Max int
}

func (f *LLMFollowups) DeriveFollowups(ctx context.Context, text string) ([]string, error) {
	max := f.Max
	if max <= 0 {
		max = 3
	}
	prompt := fmt.Sprintf("Write %d follow-up questions a curious reader would ask after reading "+
		"the following answer. One question per line, no numbering.\n\nAnswer: %s", max, text)
	out, err := f.Gen.Generate(ctx, prompt, followupBudget, nil)
	if err != nil {
		return nil, fmt.Errorf("follow-up generation: %w", err)
	}
	questions := ParseLines(out)
	logging.AnnotationDebug("derived %d follow-ups", len(questions))
	return capList(questions, max), nil
}

// ParseLines returns the non-empty lines of s with list markers removed.
func ParseLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
