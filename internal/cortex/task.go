package cortex

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a scheduled dialogue.
type TaskState int32

const (
	TaskPending TaskState = iota // waiting for a pool slot
	TaskRunning
	TaskCompleted
	TaskAbandoned
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// TaskHandle tracks one scheduled self-play dialogue.
type TaskHandle struct {
	ID        string
	Starter   string
	CreatedAt time.Time

	state int32 // atomic TaskState
	done  chan struct{}
	once  sync.Once

	mu         sync.RWMutex
	err        error
	finishedAt time.Time
}

func newTaskHandle(starter string) *TaskHandle {
	return &TaskHandle{
		ID:        uuid.NewString(),
		Starter:   starter,
		CreatedAt: time.Now(),
		state:     int32(TaskPending),
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (h *TaskHandle) State() TaskState {
	return TaskState(atomic.LoadInt32(&h.state))
}

// Done is closed once the task completed or was abandoned.
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Finished reports whether the task reached a terminal state.
func (h *TaskHandle) Finished() bool {
	s := h.State()
	return s == TaskCompleted || s == TaskAbandoned
}

// Err returns why the task was abandoned, or nil.
func (h *TaskHandle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Duration returns how long the task has existed, or took when finished.
func (h *TaskHandle) Duration() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.finishedAt.IsZero() {
		return time.Since(h.CreatedAt)
	}
	return h.finishedAt.Sub(h.CreatedAt)
}

func (h *TaskHandle) setRunning() {
	atomic.StoreInt32(&h.state, int32(TaskRunning))
}

func (h *TaskHandle) finish(err error) {
	h.once.Do(func() {
		h.mu.Lock()
		h.err = err
		h.finishedAt = time.Now()
		h.mu.Unlock()
		if err != nil {
			atomic.StoreInt32(&h.state, int32(TaskAbandoned))
		} else {
			atomic.StoreInt32(&h.state, int32(TaskCompleted))
		}
		close(h.done)
	})
}
