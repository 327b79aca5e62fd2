package cortex

import (
	"context"
	"errors"
	"time"

	"subcon/internal/logging"
	"subcon/internal/store"
	"subcon/internal/types"
)

func (m *Model) flushLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			_ = m.FlushOnce(m.ctx)
		}
	}
}

// FlushOnce runs one flush tick: the conscious transcript is persisted and
// truncated once it reaches the threshold, and the front of the subconscious
// queue is persisted and removed. Failed writes leave memory untouched and
// are returned as *types.PersistenceError.
func (m *Model) FlushOnce(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	return errors.Join(m.flushConscious(ctx, false), m.flushSubconscious(ctx))
}

// flushConscious persists all but the retained window, then drops exactly
// the persisted prefix. With final set every remaining turn is persisted.
func (m *Model) flushConscious(ctx context.Context, final bool) error {
	transcript := m.conscious.Transcript()
	turns := transcript.Snapshot()

	var head []types.Turn
	switch {
	case final && len(turns) > 0:
		head = turns
	case !final && len(turns) >= m.cfg.FlushThreshold:
		head = turns[:len(turns)-m.cfg.RetainWindow]
	default:
		return nil
	}

	rec := store.NewConsciousRecord(head)
	if err := m.persist(ctx, rec); err != nil {
		return err
	}
	transcript.DropPrefix(len(head))
	m.metrics.Flushed.WithLabelValues(string(store.KindConscious)).Inc()
	logging.Cortex("flushed %d conscious turns to %s", len(head), rec.ID)
	return nil
}

func (m *Model) flushSubconscious(ctx context.Context) error {
	m.subMu.Lock()
	if len(m.subconscious) == 0 {
		m.subMu.Unlock()
		return nil
	}
	front := m.subconscious[0]
	m.subMu.Unlock()

	rec := store.NewDialogueRecord(front)
	if err := m.persist(ctx, rec); err != nil {
		return err
	}

	// Only the flush path removes items, so the front is still the one persisted.
	m.subMu.Lock()
	m.subconscious[0] = types.DialogueResult{}
	m.subconscious = m.subconscious[1:]
	m.subMu.Unlock()

	m.metrics.Flushed.WithLabelValues(string(store.KindSubconscious)).Inc()
	logging.CortexDebug("flushed dialogue %s to %s", front.ID, rec.ID)
	return nil
}

func (m *Model) persist(ctx context.Context, rec store.Record) error {
	if err := m.store.Put(ctx, rec); err != nil {
		perr := &types.PersistenceError{RecordID: rec.ID, Err: err}
		m.metrics.FlushErrors.Inc()
		logging.CortexError("%v", perr)
		return perr
	}
	return nil
}

// drain persists the whole subconscious queue and the remaining conscious
// turns. It stops at the first failed write.
func (m *Model) drain(ctx context.Context) error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	for {
		m.subMu.Lock()
		pending := len(m.subconscious)
		m.subMu.Unlock()
		if pending == 0 {
			break
		}
		if err := m.flushSubconscious(ctx); err != nil {
			return err
		}
	}
	return m.flushConscious(ctx, true)
}
