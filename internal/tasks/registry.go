package tasks

import "sync"

// registry keeps every known task by id. Terminal entries beyond the history
// capacity are evicted oldest first so memory stays bounded on long uptimes.
type registry struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	order    []string
	capacity int
}

func newRegistry(capacity int) *registry {
	return &registry{
		tasks:    make(map[string]*Task),
		capacity: capacity,
	}
}

func (r *registry) add(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID()] = task
	r.order = append(r.order, task.ID())
	r.evictLocked()
}

func (r *registry) get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, found := r.tasks[id]
	return task, found
}

func (r *registry) kindActive(kind JobKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, task := range r.tasks {
		if task.Kind() == kind && !task.State().IsTerminal() {
			return true
		}
	}
	return false
}

func (r *registry) stateCounts() map[State]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[State]int)
	for _, task := range r.tasks {
		counts[task.State()]++
	}
	return counts
}

// evictLocked drops the oldest terminal entries until the registry fits its
// capacity. Live tasks are never evicted no matter how old.
func (r *registry) evictLocked() {
	if len(r.order) <= r.capacity {
		return
	}

	kept := r.order[:0]
	excess := len(r.order) - r.capacity
	for _, id := range r.order {
		task := r.tasks[id]
		if excess > 0 && task != nil && task.State().IsTerminal() {
			delete(r.tasks, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
