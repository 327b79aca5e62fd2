package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"subcon/internal/logging"
	"subcon/internal/types"
)

// DialogueState represents the lifecycle state of a self-play dialogue.
type DialogueState int32

const (
	DialogueIdle DialogueState = iota
	DialogueRunning
	DialogueDone
)

func (s DialogueState) String() string {
	switch s {
	case DialogueIdle:
		return "idle"
	case DialogueRunning:
		return "running"
	case DialogueDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrDialogueStarted is returned when Run is called more than once.
var ErrDialogueStarted = errors.New("dialogue already started")

// SelfPlayConfig configures one self-play dialogue.
type SelfPlayConfig struct {
	// ID identifies the dialogue; a uuid is generated when empty.
	ID string

	Starter      string
	Instructions string
	MaxTurns     int
	TokenBudget  int

	WebEnabled       bool
	RetrievalEnabled bool

	// UseExternal selects Capabilities.External for both agents.
	UseExternal bool

	HistoryLimit int
	Retry        RetryPolicy
}

// Dialogue runs two agents against each other. Each agent sees the other's
// transcript as prior context.
type Dialogue struct {
	cfg   SelfPlayConfig
	caps  types.Capabilities
	a, b  *Agent
	state int32 // atomic DialogueState
}

// NewDialogue creates a dialogue with two fresh agents.
func NewDialogue(caps types.Capabilities, cfg SelfPlayConfig) *Dialogue {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Instructions == "" {
		cfg.Instructions = DefaultSelfPlayInstructions
	}
	agentCfg := func(name string) AgentConfig {
		return AgentConfig{Name: name, HistoryLimit: cfg.HistoryLimit, Retry: cfg.Retry}
	}
	return &Dialogue{
		cfg:   cfg,
		caps:  caps,
		a:     NewAgent(caps, agentCfg("selfplay-a")),
		b:     NewAgent(caps, agentCfg("selfplay-b")),
		state: int32(DialogueIdle),
	}
}

// ID returns the dialogue's identifier.
func (d *Dialogue) ID() string { return d.cfg.ID }

// State returns the current state.
func (d *Dialogue) State() DialogueState {
	return DialogueState(atomic.LoadInt32(&d.state))
}

// Agents returns the two participants, mainly for inspection in tests.
func (d *Dialogue) Agents() (a, b *Agent) { return d.a, d.b }

// Run executes exactly MaxTurns iterations. In iteration i agent A answers the
// current message and agent B answers A. Augmentation follows CadenceOn(i),
// gated by the enabled flags; an output containing the web signal forces web
// context on for the next agent call. The returned pairs hold B's output as
// User and A's output as Assistant. Any agent failure ends the run with an
// error and the partial result.
func (d *Dialogue) Run(ctx context.Context) (types.DialogueResult, error) {
	if !atomic.CompareAndSwapInt32(&d.state, int32(DialogueIdle), int32(DialogueRunning)) {
		return types.DialogueResult{}, ErrDialogueStarted
	}
	defer atomic.StoreInt32(&d.state, int32(DialogueDone))

	log := logging.WithRequestID(logging.CategorySession, d.cfg.ID)
	log.Info("self-play starting (%d turns): %s", d.cfg.MaxTurns, truncate(d.cfg.Starter))

	result := types.DialogueResult{
		ID:        d.cfg.ID,
		Starter:   d.cfg.Starter,
		Pairs:     make([]types.DialoguePair, 0, d.cfg.MaxTurns),
		StartedAt: time.Now(),
	}
	gen := WithGenerator(d.caps.Generator(d.cfg.UseExternal))

	message := openingPrompt(d.cfg.Instructions, d.cfg.Starter)
	forceWeb := false

	for i := 0; i < d.cfg.MaxTurns; i++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("self-play interrupted at turn %d: %w", i, err)
		}
		cadence := CadenceOn(i)

		aTurn, err := d.a.Respond(ctx, message, d.augmentation(cadence, forceWeb), d.b.Transcript().Snapshot(), d.cfg.TokenBudget, gen)
		if err != nil {
			return result, fmt.Errorf("self-play turn %d (%s): %w", i, d.a.Name(), err)
		}
		forceWeb = d.cfg.WebEnabled && ContainsWebSignal(aTurn.Content)

		bTurn, err := d.b.Respond(ctx, aTurn.Content, d.augmentation(cadence, forceWeb), d.a.Transcript().Snapshot(), d.cfg.TokenBudget, gen)
		if err != nil {
			return result, fmt.Errorf("self-play turn %d (%s): %w", i, d.b.Name(), err)
		}
		forceWeb = d.cfg.WebEnabled && ContainsWebSignal(bTurn.Content)

		result.Pairs = append(result.Pairs, types.DialoguePair{User: bTurn, Assistant: aTurn})
		message = bTurn.Content
	}

	result.FinishedAt = time.Now()
	log.Info("self-play finished: %d pairs in %v", len(result.Pairs), result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

func (d *Dialogue) augmentation(cadence, forceWeb bool) types.Augmentation {
	return types.Augmentation{
		Web:       d.cfg.WebEnabled && (cadence || forceWeb),
		Retrieval: d.cfg.RetrievalEnabled && cadence,
	}
}
