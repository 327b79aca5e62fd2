package session

import (
	"context"
	"strings"
	"time"

	"subcon/internal/logging"
	"subcon/internal/types"
)

// AgentConfig configures an Agent.
type AgentConfig struct {
	// Name is used in logs only.
	Name string

	// HistoryLimit caps how many prior turns reach the generator; the most
	// recent ones are kept. Zero passes everything.
	HistoryLimit int

	Retry RetryPolicy
}

// Agent owns exactly one Transcript and produces turns through its
// capabilities. Respond is the only writer of the transcript.
type Agent struct {
	cfg        AgentConfig
	caps       types.Capabilities
	transcript *Transcript
	now        func() time.Time
}

// NewAgent creates an agent with a fresh, empty transcript.
func NewAgent(caps types.Capabilities, cfg AgentConfig) *Agent {
	if cfg.Name == "" {
		cfg.Name = "agent"
	}
	return &Agent{
		cfg:        cfg,
		caps:       caps,
		transcript: NewTranscript(),
		now:        time.Now,
	}
}

// Name returns the agent's log name.
func (a *Agent) Name() string { return a.cfg.Name }

// Transcript returns the agent's transcript.
func (a *Agent) Transcript() *Transcript { return a.transcript }

type respondOptions struct {
	generator types.Generator
}

// RespondOption customizes a single Respond call.
type RespondOption func(*respondOptions)

// WithGenerator selects the generation provider for one call.
func WithGenerator(g types.Generator) RespondOption {
	return func(o *respondOptions) {
		if g != nil {
			o.generator = g
		}
	}
}

// Respond produces one assistant turn for prompt. Retrieval context is
// gathered before web context; failures of either are logged and skipped.
// Generation is retried per the agent's policy and a *types.GenerationError
// is returned when it never succeeds, in which case the transcript is left
// unchanged. On success the user turn and the assistant turn are appended
// together and the assistant turn is returned.
func (a *Agent) Respond(
	ctx context.Context,
	prompt string,
	aug types.Augmentation,
	prior []types.Turn,
	tokenBudget int,
	opts ...RespondOption,
) (types.Turn, error) {
	ro := respondOptions{generator: a.caps.Generate}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.generator == nil {
		return types.Turn{}, &types.GenerationError{Err: types.ErrNoGenerator}
	}

	timer := logging.StartTimer(logging.CategorySession, a.cfg.Name+" respond")
	defer timer.Stop()

	var contextParts []string
	var usedRetrieval, usedWeb bool

	if aug.Retrieval {
		if text, ok := a.retrieve(ctx, prompt); ok {
			usedRetrieval = true
			if text != "" {
				contextParts = append(contextParts, text)
			}
		}
	}
	if aug.Web {
		if text, ok := a.search(ctx, prompt); ok {
			usedWeb = true
			if text != "" {
				contextParts = append(contextParts, text)
			}
		}
	}

	request := BuildPrompt(prompt, aug.Any(), contextParts)
	history := copyTail(prior, a.historyLimit(len(prior)))

	output, err := a.cfg.Retry.Generate(ctx, func(ctx context.Context) (string, error) {
		return ro.generator.Generate(ctx, request, tokenBudget, history)
	})
	if err != nil {
		logging.SessionWarn("%s: %v", a.cfg.Name, err)
		return types.Turn{}, err
	}
	output = strings.TrimSpace(output)

	topics, keywords := a.annotate(ctx, output)

	now := a.now()
	user := types.Turn{
		Timestamp:     now,
		Role:          types.RoleUser,
		Content:       prompt,
		Topics:        topics,
		Keywords:      keywords,
		UsedWeb:       usedWeb,
		UsedRetrieval: usedRetrieval,
	}
	assistant := user
	assistant.Role = types.RoleAssistant
	assistant.Content = output

	a.transcript.Append(user, assistant)
	logging.SessionDebug("%s responded to %q (web=%v retrieval=%v)", a.cfg.Name, truncate(prompt), usedWeb, usedRetrieval)
	return assistant, nil
}

func (a *Agent) historyLimit(n int) int {
	if a.cfg.HistoryLimit > 0 && a.cfg.HistoryLimit < n {
		return a.cfg.HistoryLimit
	}
	return n
}

func (a *Agent) retrieve(ctx context.Context, query string) (string, bool) {
	if a.caps.Retrieve == nil {
		logging.SessionDebug("%s: retrieval requested but no retriever configured", a.cfg.Name)
		return "", false
	}
	text, err := a.caps.Retrieve.Retrieve(ctx, query)
	if err != nil {
		logging.SessionWarn("%s: %v", a.cfg.Name, &types.AugmentationError{Source: "retrieval", Err: err})
		return "", false
	}
	return strings.TrimSpace(text), true
}

func (a *Agent) search(ctx context.Context, query string) (string, bool) {
	if a.caps.Search == nil {
		logging.SessionDebug("%s: web search requested but no searcher configured", a.cfg.Name)
		return "", false
	}
	text, err := a.caps.Search.Search(ctx, query)
	if err != nil {
		logging.SessionWarn("%s: %v", a.cfg.Name, &types.AugmentationError{Source: "web", Err: err})
		return "", false
	}
	return strings.TrimSpace(text), true
}

func (a *Agent) annotate(ctx context.Context, text string) (topics, keywords []string) {
	if a.caps.Topics != nil {
		t, err := a.caps.Topics.ExtractTopics(ctx, text)
		if err != nil {
			logging.SessionWarn("%s: %v", a.cfg.Name, &types.AnnotationError{Kind: "topics", Err: err})
		} else {
			topics = types.NormalizeSet(t)
		}
	}
	if a.caps.Keywords != nil {
		k, err := a.caps.Keywords.ExtractKeywords(ctx, text)
		if err != nil {
			logging.SessionWarn("%s: %v", a.cfg.Name, &types.AnnotationError{Kind: "keywords", Err: err})
		} else {
			keywords = types.NormalizeSet(k)
		}
	}
	return topics, keywords
}
