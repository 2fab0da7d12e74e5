package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindTest       JobKind = "test"
	JobKindFederal    JobKind = "federal"
	JobKindProvincial JobKind = "provincial"
	JobKindMunicipal  JobKind = "municipal"
)

func JobKinds() []JobKind {
	return []JobKind{JobKindTest, JobKindFederal, JobKindProvincial, JobKindMunicipal}
}

type State string

const (
	StatePending   State = "PENDING"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Result is what a collector hands back on success.
type Result struct {
	RecordsCreated int    `json:"records_created"`
	RecordsUpdated int    `json:"records_updated"`
	ErrorsCount    int    `json:"errors_count"`
	Message        string `json:"message,omitempty"`
}

// Task is the in-memory entry tracking one scheduled job. All state moves
// through its own mutex, so two tasks never contend with each other.
type Task struct {
	id    string
	kind  JobKind
	runID uuid.UUID

	mu              sync.Mutex
	state           State
	result          *Result
	errMessage      string
	traceback       string
	cancelRequested bool
	cancelFn        context.CancelFunc
	createdAt       time.Time
}

func newTask(id string, kind JobKind, runID uuid.UUID) *Task {
	return &Task{
		id:        id,
		kind:      kind,
		runID:     runID,
		state:     StatePending,
		createdAt: time.Now().UTC(),
	}
}

func (t *Task) ID() string       { return t.id }
func (t *Task) Kind() JobKind    { return t.kind }
func (t *Task) RunID() uuid.UUID { return t.runID }

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Status is an immutable snapshot safe to hand to handlers.
type Status struct {
	TaskID    string
	Kind      JobKind
	State     State
	RunID     uuid.UUID
	Result    *Result
	Error     string
	Traceback string
}

func (t *Task) Snapshot() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := Status{
		TaskID:    t.id,
		Kind:      t.kind,
		State:     t.state,
		RunID:     t.runID,
		Error:     t.errMessage,
		Traceback: t.traceback,
	}
	if t.result != nil {
		result := *t.result
		status.Result = &result
	}
	return status
}

// markRunning transitions pending to running. It fails when cancellation was
// requested while the task sat in the queue; the caller then treats the task
// as cancelled without ever starting it.
func (t *Task) markRunning(cancelFn context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePending || t.cancelRequested {
		t.state = StateCancelled
		return false
	}
	t.state = StateRunning
	t.cancelFn = cancelFn
	return true
}

func (t *Task) complete(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return
	}
	t.state = StateCompleted
	t.result = &result
}

func (t *Task) fail(errMessage, traceback string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return
	}
	t.state = StateFailed
	t.errMessage = errMessage
	t.traceback = traceback
}

func (t *Task) cancelled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return
	}
	t.state = StateCancelled
}

// requestCancel flips the cancellation flag. Pending tasks stay in the queue
// and are reaped by the worker; running tasks get their context cancelled and
// stop at the next checkpoint. The return value is false when the task is
// already terminal.
func (t *Task) requestCancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return false
	}
	t.cancelRequested = true
	if t.cancelFn != nil {
		t.cancelFn()
	}
	return true
}

func (t *Task) isCancelRequested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelRequested
}
