package session

import (
	"sync"

	"subcon/internal/types"
)

// Transcript is an ordered, append-only log of turns owned by one Agent.
// Readers always receive copies, so iterating a snapshot is safe while the
// owner keeps appending.
type Transcript struct {
	mu    sync.RWMutex
	turns []types.Turn
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{turns: make([]types.Turn, 0, 16)}
}

// Append adds turns at the end in one step.
func (t *Transcript) Append(turns ...types.Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turns...)
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Snapshot returns a copy of every turn.
func (t *Transcript) Snapshot() []types.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Recent returns a copy of the last n turns (all of them when fewer exist).
func (t *Transcript) Recent(n int) []types.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyTail(t.turns, n)
}

// DropPrefix removes the first n turns and reports how many were removed.
// Turns appended after the caller's snapshot are kept.
func (t *Transcript) DropPrefix(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 {
		return 0
	}
	if n > len(t.turns) {
		n = len(t.turns)
	}
	rest := make([]types.Turn, len(t.turns)-n, cap(t.turns))
	copy(rest, t.turns[n:])
	t.turns = rest
	return n
}

func copyTail(turns []types.Turn, n int) []types.Turn {
	if n <= 0 {
		return nil
	}
	start := len(turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}
