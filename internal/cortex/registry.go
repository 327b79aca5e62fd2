package cortex

import (
	"sort"
	"sync"

	"subcon/internal/logging"
)

// TaskRegistry tracks scheduled dialogues. It is advisory: removing a handle
// never affects the running dialogue.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*TaskHandle
}

// NewTaskRegistry returns an empty registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*TaskHandle)}
}

// Register adds a handle.
func (r *TaskRegistry) Register(h *TaskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[h.ID] = h
}

// Get returns a handle by id.
func (r *TaskRegistry) Get(id string) (*TaskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tasks[id]
	return h, ok
}

// Len returns the number of tracked handles.
func (r *TaskRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Snapshot returns the tracked handles ordered by creation time.
func (r *TaskRegistry) Snapshot() []*TaskHandle {
	r.mu.Lock()
	handles := make([]*TaskHandle, 0, len(r.tasks))
	for _, h := range r.tasks {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	sort.Slice(handles, func(i, j int) bool {
		return handles[i].CreatedAt.Before(handles[j].CreatedAt)
	})
	return handles
}

// Active returns the number of handles not yet finished.
func (r *TaskRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, h := range r.tasks {
		if !h.Finished() {
			count++
		}
	}
	return count
}

// Sweep removes finished handles and reports how many were removed.
func (r *TaskRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, h := range r.tasks {
		if h.Finished() {
			delete(r.tasks, id)
			removed++
		}
	}

	if removed > 0 {
		logging.CortexDebug("Cleaned up %d finished dialogue tasks", removed)
	}
	return removed
}
