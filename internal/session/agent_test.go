package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subcon/internal/types"
)

func newTestAgent(gen *MockGenerator) *Agent {
	return NewAgent(testCaps(gen), AgentConfig{Name: "test", Retry: fastRetry()})
}

func TestAgent_TranscriptGrowsByTwoPerCall(t *testing.T) {
	gen := &MockGenerator{}
	agent := newTestAgent(gen)
	rng := rand.New(rand.NewSource(42))

	type exchange struct{ prompt, answer string }
	var want []exchange

	calls := 1 + rng.Intn(12)
	for i := 0; i < calls; i++ {
		prompt := fmt.Sprintf("prompt %d", rng.Intn(1000))
		aug := types.Augmentation{Web: rng.Intn(2) == 0, Retrieval: rng.Intn(2) == 0}
		out, err := agent.Respond(context.Background(), prompt, aug, nil, 50)
		require.NoError(t, err)
		assert.Equal(t, types.RoleAssistant, out.Role)
		want = append(want, exchange{prompt, out.Content})
	}

	turns := agent.Transcript().Snapshot()
	require.Len(t, turns, 2*calls)

	var got []exchange
	for i := 0; i < len(turns); i += 2 {
		require.Equal(t, types.RoleUser, turns[i].Role)
		require.Equal(t, types.RoleAssistant, turns[i+1].Role)
		got = append(got, exchange{turns[i].Content, turns[i+1].Content})
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(exchange{})); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestAgent_AnnotationFailureIsNonFatal(t *testing.T) {
	gen := &MockGenerator{}
	caps := testCaps(gen)
	caps.Topics = &MockAnnotator{TopicsFunc: func(string) ([]string, error) { return nil, errors.New("classifier down") }}
	caps.Keywords = &MockAnnotator{KeywordsFunc: func(string) ([]string, error) { return nil, errors.New("keywords down") }}
	agent := NewAgent(caps, AgentConfig{Retry: fastRetry()})

	out, err := agent.Respond(context.Background(), "hello", types.Augmentation{}, nil, 50)
	require.NoError(t, err)

	assert.Equal(t, "answer 0", out.Content)
	assert.Empty(t, out.Topics)
	assert.Empty(t, out.Keywords)
	assert.Equal(t, 2, agent.Transcript().Len())
}

func TestAgent_AnnotationsAreNormalizedSets(t *testing.T) {
	agent := newTestAgent(&MockGenerator{})

	out, err := agent.Respond(context.Background(), "hello", types.Augmentation{}, nil, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"keyword", "other"}, out.Keywords)
	assert.Equal(t, []string{"science_&_technology"}, out.Topics)

	user := agent.Transcript().Snapshot()[0]
	assert.Equal(t, out.Topics, user.Topics)
}

func TestAgent_PromptIncludesRetrievalBeforeWeb(t *testing.T) {
	gen := &MockGenerator{}
	caps := testCaps(gen)
	caps.Retrieve = &MockRetriever{RetrieveFunc: func(string) (string, error) { return "R-CONTEXT", nil }}
	caps.Search = &MockSearcher{SearchFunc: func(string) (string, error) { return "W-CONTEXT", nil }}
	agent := NewAgent(caps, AgentConfig{Retry: fastRetry()})

	out, err := agent.Respond(context.Background(), "what is go?", types.Augmentation{Web: true, Retrieval: true}, nil, 50)
	require.NoError(t, err)
	assert.True(t, out.UsedWeb)
	assert.True(t, out.UsedRetrieval)

	prompt := gen.Calls()[0].Prompt
	assert.Contains(t, prompt, "''what is go?''")
	assert.Contains(t, prompt, "Use the unstructured text information")
	assert.Contains(t, prompt, "Contextual Information:\nR-CONTEXT\nW-CONTEXT")
}

func TestAgent_NoAugmentationOmitsContext(t *testing.T) {
	gen := &MockGenerator{}
	caps := testCaps(gen)
	retriever := &MockRetriever{}
	searcher := &MockSearcher{}
	caps.Retrieve, caps.Search = retriever, searcher
	agent := NewAgent(caps, AgentConfig{Retry: fastRetry()})

	out, err := agent.Respond(context.Background(), "plain", types.Augmentation{}, nil, 50)
	require.NoError(t, err)
	assert.False(t, out.UsedWeb)
	assert.False(t, out.UsedRetrieval)
	assert.Empty(t, retriever.Queries)
	assert.Empty(t, searcher.Queries)

	prompt := gen.Calls()[0].Prompt
	assert.NotContains(t, prompt, "Contextual Information")
	assert.Contains(t, prompt, "Be concise, accurate, and coherent")
}

func TestAgent_AugmentationFailureIsSwallowed(t *testing.T) {
	gen := &MockGenerator{}
	caps := testCaps(gen)
	caps.Search = &MockSearcher{SearchFunc: func(string) (string, error) { return "", errors.New("dns failure") }}
	agent := NewAgent(caps, AgentConfig{Retry: fastRetry()})

	out, err := agent.Respond(context.Background(), "news?", types.Augmentation{Web: true, Retrieval: true}, nil, 50)
	require.NoError(t, err)
	assert.False(t, out.UsedWeb)
	assert.True(t, out.UsedRetrieval)
	assert.Len(t, gen.Calls(), 1)
}

func TestAgent_GenerationRetriesThenFails(t *testing.T) {
	gen := &MockGenerator{GenerateFunc: func(int, string) (string, error) { return "", errors.New("503") }}
	agent := newTestAgent(gen)

	_, err := agent.Respond(context.Background(), "hello", types.Augmentation{}, nil, 50)
	require.Error(t, err)

	var genErr *types.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 3, genErr.Attempts)
	assert.Len(t, gen.Calls(), 3)
	assert.Equal(t, 0, agent.Transcript().Len())
}

func TestAgent_GenerationRecoversWithinBudget(t *testing.T) {
	gen := &MockGenerator{GenerateFunc: func(call int, _ string) (string, error) {
		if call < 2 {
			return "", errors.New("rate limited")
		}
		return "  finally  ", nil
	}}
	agent := newTestAgent(gen)

	out, err := agent.Respond(context.Background(), "hello", types.Augmentation{}, nil, 50)
	require.NoError(t, err)
	assert.Equal(t, "finally", out.Content)
}

func TestAgent_CancelledContext(t *testing.T) {
	agent := newTestAgent(&MockGenerator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Respond(ctx, "hello", types.Augmentation{}, nil, 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAgent_HistoryLimitKeepsMostRecent(t *testing.T) {
	gen := &MockGenerator{}
	agent := NewAgent(testCaps(gen), AgentConfig{HistoryLimit: 4, Retry: fastRetry()})

	var prior []types.Turn
	for i := 0; i < 10; i++ {
		prior = append(prior, turn(fmt.Sprint(i)))
	}
	_, err := agent.Respond(context.Background(), "q", types.Augmentation{}, prior, 75)
	require.NoError(t, err)

	call := gen.Calls()[0]
	assert.Equal(t, 75, call.TokenBudget)
	want := prior[6:]
	if diff := cmp.Diff(want, call.History, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestAgent_WithGeneratorOverride(t *testing.T) {
	local := &MockGenerator{}
	external := &MockGenerator{GenerateFunc: func(int, string) (string, error) { return "external", nil }}
	agent := newTestAgent(local)

	out, err := agent.Respond(context.Background(), "q", types.Augmentation{}, nil, 50, WithGenerator(external))
	require.NoError(t, err)
	assert.Equal(t, "external", out.Content)
	assert.Empty(t, local.Calls())
}

func TestAgent_NoGenerator(t *testing.T) {
	agent := NewAgent(types.Capabilities{}, AgentConfig{})
	_, err := agent.Respond(context.Background(), "q", types.Augmentation{}, nil, 50)
	assert.ErrorIs(t, err, types.ErrNoGenerator)
}

func TestBuildPrompt(t *testing.T) {
	plain := BuildPrompt("hi", false, nil)
	assert.Equal(t, "User Question/Prompt:\n    - ''hi''\nInstructions:\n    - Be concise, accurate, and coherent in your answers\n", plain)

	augmented := BuildPrompt("hi", true, []string{"a", "b"})
	assert.True(t, strings.HasSuffix(augmented, "Contextual Information:\na\nb"))
}

func TestContainsWebSignal(t *testing.T) {
	assert.True(t, ContainsWebSignal("I require information from the web."))
	assert.True(t, ContainsWebSignal("well, I   REQUIRE\tinformation\nfrom   the Web now"))
	assert.False(t, ContainsWebSignal("I require information"))
	assert.False(t, ContainsWebSignal(""))
}

func TestRetryPolicy_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_, err := RetryPolicy{}.Generate(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
