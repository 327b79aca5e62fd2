// Package cortex is the orchestrator. It runs the conscious dialogue with the
// user and, for every follow-up question an answer raises, a subconscious
// self-play dialogue on a bounded worker pool. A flush loop moves both tiers
// to durable storage.
package cortex

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"subcon/internal/config"
	"subcon/internal/logging"
	"subcon/internal/session"
	"subcon/internal/store"
	"subcon/internal/types"
)

// DegradedResponse is returned by Chat when generation failed on every attempt.
const DegradedResponse = "Error: unable to generate a response right now. Please try again."

// Config configures a Model.
type Config struct {
	MaxConcurrency int
	FlushThreshold int
	RetainWindow   int
	ContextWindow  int

	FlushInterval   time.Duration
	MonitorInterval time.Duration

	ChatTokenBudget      int
	SelfPlayTokenBudget  int
	SelfPlayIterations   int
	SelfPlayWeb          bool
	SelfPlayRetrieval    bool
	SubconsciousExternal bool
	SelfPlayInstructions string

	HistoryLimit int
	Retry        session.RetryPolicy
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:       3,
		FlushThreshold:       10,
		RetainWindow:         5,
		ContextWindow:        5,
		FlushInterval:        250 * time.Millisecond,
		MonitorInterval:      time.Second,
		ChatTokenBudget:      500,
		SelfPlayTokenBudget:  75,
		SelfPlayIterations:   5,
		SelfPlayWeb:          true,
		SubconsciousExternal: true,
		HistoryLimit:         10,
		Retry:                session.DefaultRetryPolicy(),
	}
}

// ConfigFrom maps the file configuration onto a Model config.
func ConfigFrom(cfg *config.Config) Config {
	c := cfg.Cortex
	return Config{
		MaxConcurrency:       c.MaxConcurrency,
		FlushThreshold:       c.FlushThreshold,
		RetainWindow:         c.RetainWindow,
		ContextWindow:        c.ContextWindow,
		FlushInterval:        cfg.GetFlushInterval(),
		MonitorInterval:      cfg.GetMonitorInterval(),
		ChatTokenBudget:      c.ChatTokenBudget,
		SelfPlayTokenBudget:  c.SelfPlayTokenBudget,
		SelfPlayIterations:   c.SelfPlayIterations,
		SelfPlayWeb:          c.SelfPlayWeb,
		SelfPlayRetrieval:    c.SelfPlayRetrieval,
		SubconsciousExternal: c.SubconsciousExternal,
		HistoryLimit:         cfg.LLM.HistoryLimit,
		Retry: session.RetryPolicy{
			MaxAttempts: cfg.LLM.RetryAttempts,
			Delay:       cfg.GetRetryDelay(),
		},
	}
}

// Option customizes a Model.
type Option func(*Model)

// WithRegisterer registers metrics on reg instead of a private registry.
// Models sharing reg share the collectors registered first.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(m *Model) { m.registerer = reg }
}

// Model owns the conscious transcript, the subconscious queue, the task
// registry and the background loops. Create one per session with New and
// release it with Close.
type Model struct {
	cfg   Config
	caps  types.Capabilities
	store store.RecordStore

	conscious *session.Agent

	subMu        sync.Mutex
	subconscious []types.DialogueResult

	tasks   *TaskRegistry
	pool    *semaphore.Weighted
	flushMu sync.Mutex

	registerer prometheus.Registerer
	metrics    *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lifeMu sync.Mutex
	closed bool
}

// New creates a Model and starts its monitor and flush loops. The loops and
// every scheduled dialogue stop when ctx is cancelled or Close is called.
// The store stays owned by the caller; a nil store keeps records in memory.
func New(ctx context.Context, cfg Config, caps types.Capabilities, st store.RecordStore, opts ...Option) *Model {
	def := DefaultConfig()
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if cfg.RetainWindow < 0 || cfg.FlushThreshold <= cfg.RetainWindow {
		cfg.FlushThreshold, cfg.RetainWindow = def.FlushThreshold, def.RetainWindow
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	m := &Model{
		cfg:   cfg,
		caps:  caps,
		store: st,
		conscious: session.NewAgent(caps, session.AgentConfig{
			Name:         "conscious",
			HistoryLimit: cfg.HistoryLimit,
			Retry:        cfg.Retry,
		}),
		tasks:      NewTaskRegistry(),
		pool:       semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		registerer: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.metrics = NewMetrics(m.registerer)
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(2)
	go m.monitorLoop()
	go m.flushLoop()

	logging.Cortex("Model started (pool %d, flush %d/%d every %v)",
		cfg.MaxConcurrency, cfg.FlushThreshold, cfg.RetainWindow, cfg.FlushInterval)
	return m
}

// ChatRequest is one conscious turn.
type ChatRequest struct {
	Prompt              string
	Augmentation        types.Augmentation
	TokenBudget         int  // zero uses Config.ChatTokenBudget
	UseExternalProvider bool // answer with Capabilities.External

	// SelfPlayIterations overrides Config.SelfPlayIterations when positive;
	// a negative value schedules no dialogues.
	SelfPlayIterations int
}

// Chat answers prompt synchronously, then schedules one self-play dialogue per
// derived follow-up question and returns without waiting for them. When
// generation fails on every attempt it returns DegradedResponse.
func (m *Model) Chat(ctx context.Context, req ChatRequest) string {
	timer := logging.StartTimer(logging.CategoryCortex, "Chat")
	defer timer.Stop()

	budget := req.TokenBudget
	if budget <= 0 {
		budget = m.cfg.ChatTokenBudget
	}
	prior := m.conscious.Transcript().Recent(m.cfg.ContextWindow)

	turn, err := m.conscious.Respond(ctx, req.Prompt, req.Augmentation, prior, budget,
		session.WithGenerator(m.caps.Generator(req.UseExternalProvider)))
	if err != nil {
		logging.CortexError("conscious turn failed: %v", err)
		return DegradedResponse
	}

	iterations := m.cfg.SelfPlayIterations
	if req.SelfPlayIterations != 0 {
		iterations = req.SelfPlayIterations
	}
	if iterations > 0 {
		for _, q := range m.deriveFollowups(ctx, turn.Content) {
			m.schedule(WrapFollowup(req.Prompt, q), iterations)
		}
	}
	return turn.Content
}

// WrapFollowup frames a follow-up question with the prompt that raised it.
func WrapFollowup(prompt, question string) string {
	return fmt.Sprintf("Original question: %s\nFollow-up question: %s", strings.TrimSpace(prompt), strings.TrimSpace(question))
}

func (m *Model) deriveFollowups(ctx context.Context, answer string) []string {
	if m.caps.Followups == nil {
		return nil
	}
	questions, err := m.caps.Followups.DeriveFollowups(ctx, answer)
	if err != nil {
		logging.CortexWarn("follow-up derivation failed: %v", err)
		return nil
	}
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// schedule registers a dialogue and starts its worker. The worker waits for a
// pool slot, so scheduling never drops work.
func (m *Model) schedule(starter string, iterations int) *TaskHandle {
	h := newTaskHandle(starter)

	m.lifeMu.Lock()
	if m.closed {
		m.lifeMu.Unlock()
		h.finish(&types.DialogueAbandonedError{TaskID: h.ID, Err: context.Canceled})
		return h
	}
	m.tasks.Register(h)
	m.wg.Add(1)
	m.lifeMu.Unlock()

	m.metrics.Scheduled.Inc()
	logging.CortexDebug("scheduled dialogue %s: %s", h.ID, starter)
	go m.runDialogue(h, iterations)
	return h
}

func (m *Model) runDialogue(h *TaskHandle, iterations int) {
	defer m.wg.Done()

	if err := m.pool.Acquire(m.ctx, 1); err != nil {
		m.abandon(h, err)
		return
	}
	defer m.pool.Release(1)

	h.setRunning()
	m.metrics.Running.Inc()
	defer m.metrics.Running.Dec()

	d := session.NewDialogue(m.caps, session.SelfPlayConfig{
		ID:               h.ID,
		Starter:          h.Starter,
		Instructions:     m.cfg.SelfPlayInstructions,
		MaxTurns:         iterations,
		TokenBudget:      m.cfg.SelfPlayTokenBudget,
		WebEnabled:       m.cfg.SelfPlayWeb,
		RetrievalEnabled: m.cfg.SelfPlayRetrieval,
		UseExternal:      m.cfg.SubconsciousExternal,
		HistoryLimit:     m.cfg.HistoryLimit,
		Retry:            m.cfg.Retry,
	})
	result, err := d.Run(m.ctx)
	if err != nil {
		m.abandon(h, err)
		return
	}

	m.subMu.Lock()
	m.subconscious = append(m.subconscious, result)
	m.subMu.Unlock()

	h.finish(nil)
	m.metrics.Completed.Inc()
	logging.WithRequestID(logging.CategoryCortex, h.ID).Debug("dialogue completed in %v", h.Duration())
}

func (m *Model) abandon(h *TaskHandle, err error) {
	abandoned := &types.DialogueAbandonedError{TaskID: h.ID, Err: err}
	logging.CortexWarn("%v", abandoned)
	h.finish(abandoned)
	m.metrics.Abandoned.Inc()
}

// WaitForAll waits for every dialogue registered at call time. It returns
// false if timeout elapses first; a non-positive timeout waits indefinitely.
// Dialogues scheduled after the call are not awaited.
func (m *Model) WaitForAll(timeout time.Duration) bool {
	handles := m.tasks.Snapshot()

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-deadline:
			return false
		}
	}
	return true
}

func (m *Model) monitorLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.tasks.Sweep()
			m.metrics.Tracked.Set(float64(m.tasks.Len()))
		}
	}
}

// Conscious returns a snapshot of the conscious transcript.
func (m *Model) Conscious() []types.Turn {
	return m.conscious.Transcript().Snapshot()
}

// Subconscious returns a snapshot of completed dialogues not yet flushed.
func (m *Model) Subconscious() []types.DialogueResult {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	out := make([]types.DialogueResult, len(m.subconscious))
	copy(out, m.subconscious)
	return out
}

// Tasks returns the tracked dialogue tasks.
func (m *Model) Tasks() []*TaskHandle {
	return m.tasks.Snapshot()
}

// ActiveTasks returns the number of dialogues pending or running.
func (m *Model) ActiveTasks() int {
	return m.tasks.Active()
}

// Store returns the record store.
func (m *Model) Store() store.RecordStore {
	return m.store
}

// Close stops the loops, cancels outstanding dialogues and waits for every
// goroutine to exit. It then persists whatever remains in memory, best effort.
func (m *Model) Close() error {
	m.lifeMu.Lock()
	if m.closed {
		m.lifeMu.Unlock()
		return nil
	}
	m.closed = true
	m.lifeMu.Unlock()

	m.cancel()
	m.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.drain(ctx)
	logging.Cortex("Model closed")
	return err
}
