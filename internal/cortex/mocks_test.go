package cortex

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"subcon/internal/session"
	"subcon/internal/store"
	"subcon/internal/types"
)

// MockGenerator implements types.Generator. It can block every call on Gate
// and records the peak number of concurrent calls.
type MockGenerator struct {
	Reply string
	Err   error
	Gate  chan struct{}

	mu      sync.Mutex
	budgets []int

	inflight    int32
	maxInflight int32
}

func (g *MockGenerator) Generate(ctx context.Context, prompt string, tokenBudget int, history []types.Turn) (string, error) {
	n := atomic.AddInt32(&g.inflight, 1)
	defer atomic.AddInt32(&g.inflight, -1)
	for {
		old := atomic.LoadInt32(&g.maxInflight)
		if n <= old || atomic.CompareAndSwapInt32(&g.maxInflight, old, n) {
			break
		}
	}

	g.mu.Lock()
	g.budgets = append(g.budgets, tokenBudget)
	g.mu.Unlock()

	if g.Gate != nil {
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	if g.Reply == "" {
		return "reply", nil
	}
	return g.Reply, nil
}

func (g *MockGenerator) Inflight() int32    { return atomic.LoadInt32(&g.inflight) }
func (g *MockGenerator) MaxInflight() int32 { return atomic.LoadInt32(&g.maxInflight) }

func (g *MockGenerator) Budgets() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.budgets...)
}

// MockFollowups implements types.FollowupDeriver.
type MockFollowups struct {
	Questions []string
	Err       error
}

func (f *MockFollowups) DeriveFollowups(context.Context, string) ([]string, error) {
	return f.Questions, f.Err
}

// MockSearcher implements types.Searcher.
type MockSearcher struct{ calls int32 }

func (s *MockSearcher) Search(context.Context, string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return "web context", nil
}

// FlakyStore fails every Put while Fail is set.
type FlakyStore struct {
	*store.MemoryStore
	Fail atomic.Bool
}

func NewFlakyStore() *FlakyStore {
	return &FlakyStore{MemoryStore: store.NewMemoryStore()}
}

func (s *FlakyStore) Put(ctx context.Context, rec store.Record) error {
	if s.Fail.Load() {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, rec)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.FlushInterval = time.Hour
	cfg.MonitorInterval = time.Hour
	cfg.SelfPlayIterations = 2
	cfg.Retry = session.RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond}
	return cfg
}

func questions(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "question " + string(rune('a'+i)) + "?"
	}
	return out
}
