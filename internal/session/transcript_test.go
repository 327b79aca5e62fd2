package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subcon/internal/types"
)

func turn(content string) types.Turn {
	return types.Turn{Role: types.RoleUser, Content: content}
}

func TestTranscript_SnapshotIsIndependent(t *testing.T) {
	tr := NewTranscript()
	tr.Append(turn("a"), turn("b"))

	snap := tr.Snapshot()
	tr.Append(turn("c"))
	snap[0].Content = "mutated"

	require.Len(t, snap, 2)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, "a", tr.Snapshot()[0].Content)
}

func TestTranscript_Recent(t *testing.T) {
	tr := NewTranscript()
	for i := 0; i < 7; i++ {
		tr.Append(turn(fmt.Sprint(i)))
	}

	recent := tr.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "4", recent[0].Content)
	assert.Equal(t, "6", recent[2].Content)

	assert.Len(t, tr.Recent(50), 7)
	assert.Nil(t, tr.Recent(0))
}

func TestTranscript_DropPrefixKeepsLaterAppends(t *testing.T) {
	tr := NewTranscript()
	for i := 0; i < 10; i++ {
		tr.Append(turn(fmt.Sprint(i)))
	}
	snap := tr.Snapshot()
	tr.Append(turn("late"))

	removed := tr.DropPrefix(len(snap) - 5)
	assert.Equal(t, 5, removed)

	got := tr.Snapshot()
	require.Len(t, got, 6)
	assert.Equal(t, "5", got[0].Content)
	assert.Equal(t, "late", got[5].Content)

	assert.Equal(t, 0, tr.DropPrefix(0))
	assert.Equal(t, 6, tr.DropPrefix(100))
	assert.Equal(t, 0, tr.Len())
}

func TestTranscript_ConcurrentReadersAndWriter(t *testing.T) {
	tr := NewTranscript()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.Append(turn(fmt.Sprint(i)))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := tr.Snapshot()
				for j := range snap {
					_ = snap[j].Content
				}
				_ = tr.Recent(5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, tr.Len())
}
