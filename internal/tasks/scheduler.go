package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/events"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
	"github.com/openpolicy/civicdata/pkg/metrics"
)

var (
	ErrUnknownJobKind       = errors.New("unknown job kind")
	ErrTaskNotFound         = errors.New("task not found")
	ErrSchedulerUnavailable = errors.New("scheduler queue is full")
	ErrKindAlreadyActive    = errors.New("a job of this kind is already active")
)

// EventWriter is the slice of the event producer the scheduler needs.
type EventWriter interface {
	WriteRunStarted(ctx context.Context, event events.RunStartedEvent) error
	WriteRunFinalized(ctx context.Context, event events.RunFinalizedEvent) error
}

// Scheduler owns the worker pool and the in-memory task registry. Scheduling
// never blocks on execution: tasks go through a bounded queue and callers get
// an id back immediately.
type Scheduler struct {
	config     config.SchedulerConfig
	store      store.Store
	collectors map[JobKind]Collector
	registry   *registry
	queue      chan *Task
	// slots mirrors the queue's capacity. A slot is taken before any state
	// is created for a task, so a full queue rejects the request without
	// leaving a run record or registry entry behind.
	slots chan struct{}

	eventWriter EventWriter

	wg sync.WaitGroup
}

type SchedulerOption func(s *Scheduler)

func WithEventWriter(w EventWriter) SchedulerOption {
	return func(s *Scheduler) {
		s.eventWriter = w
	}
}

func NewScheduler(cfg config.SchedulerConfig, s store.Store, collectors map[JobKind]Collector, opts ...SchedulerOption) *Scheduler {
	scheduler := &Scheduler{
		config:     cfg,
		store:      s,
		collectors: collectors,
		registry:   newRegistry(cfg.RunHistory),
		queue:      make(chan *Task, cfg.QueueDepth),
		slots:      make(chan struct{}, cfg.QueueDepth),
	}
	for _, o := range opts {
		o(scheduler)
	}
	return scheduler
}

// Start launches the worker pool. Workers stop when ctx is cancelled; Wait
// blocks until they drain.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
	zap.S().Named("scheduler").Infof("scheduler started with %d workers, queue depth %d", s.config.Workers, s.config.QueueDepth)
}

func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Schedule validates the kind, records a pending run and enqueues the task.
// A full queue is reported immediately rather than blocking the caller.
func (s *Scheduler) Schedule(ctx context.Context, kind JobKind) (string, error) {
	if !funk.Contains(JobKinds(), kind) {
		return "", errors.Wrapf(ErrUnknownJobKind, "kind %q", kind)
	}
	if _, found := s.collectors[kind]; !found {
		return "", errors.Wrapf(ErrUnknownJobKind, "no collector registered for kind %q", kind)
	}
	if !s.config.AllowConcurrentSameKind && s.registry.kindActive(kind) {
		return "", errors.Wrapf(ErrKindAlreadyActive, "kind %q", kind)
	}

	// a full queue rejects before any task or run exists
	select {
	case s.slots <- struct{}{}:
	default:
		return "", ErrSchedulerUnavailable
	}

	taskID := uuid.NewString()
	run, err := s.store.ScrapingRun().Create(ctx, model.ScrapingRun{
		ID:                uuid.New(),
		TaskID:            taskID,
		JurisdictionTypes: string(kind),
		Status:            model.RunStatusPending,
		StartedAt:         time.Now().UTC(),
	})
	if err != nil {
		<-s.slots
		return "", fmt.Errorf("creating run record: %w", err)
	}

	task := newTask(taskID, kind, run.ID)
	s.registry.add(task)

	// cannot block: the reserved slot guarantees room in the queue
	s.queue <- task

	metrics.IncreaseTasksScheduledTotalMetric(string(kind))
	s.publishStateMetrics()

	zap.S().Named("scheduler").Infow("task scheduled", "task_id", taskID, "kind", kind, "run_id", run.ID)
	return taskID, nil
}

// GetStatus returns a snapshot of the task. Tasks evicted from the registry
// are gone; their runs remain queryable through the run listing.
func (s *Scheduler) GetStatus(taskID string) (Status, error) {
	task, found := s.registry.get(taskID)
	if !found {
		return Status{}, ErrTaskNotFound
	}
	return task.Snapshot(), nil
}

// Cancel requests cooperative cancellation. Pending tasks are cancelled
// before they start; running tasks stop at their next checkpoint. The bool
// is false when the task is already terminal and nothing changed.
func (s *Scheduler) Cancel(taskID string) (bool, error) {
	task, found := s.registry.get(taskID)
	if !found {
		return false, ErrTaskNotFound
	}

	accepted := task.requestCancel()
	if accepted {
		zap.S().Named("scheduler").Infow("task cancellation requested", "task_id", taskID, "state", task.State())
	}
	s.publishStateMetrics()
	return accepted, nil
}

func (s *Scheduler) ListRecentRuns(ctx context.Context) (model.ScrapingRunList, error) {
	return s.store.ScrapingRun().List(ctx, s.config.RunHistory)
}

func (s *Scheduler) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-s.queue:
			<-s.slots
			s.execute(ctx, task)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, task *Task) {
	logger := zap.S().Named("scheduler").With("task_id", task.ID(), "kind", task.Kind(), "run_id", task.RunID())

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !task.markRunning(cancel) {
		// cancelled while still queued
		s.finalizeRun(task, model.RunStatusCancelled, strPtr("cancelled before start"))
		s.emitRunFinalized(task, model.RunStatusCancelled, "cancelled before start")
		s.publishStateMetrics()
		logger.Info("task cancelled before start")
		return
	}

	if err := s.store.ScrapingRun().MarkRunning(context.Background(), task.RunID()); err != nil {
		logger.Errorw("failed to mark run as running", "error", err)
	}
	s.emitRunStarted(task)
	s.publishStateMetrics()
	logger.Info("task started")

	defer func() {
		if r := recover(); r != nil {
			trace := string(debug.Stack())
			errMessage := fmt.Sprintf("%v", r)
			task.fail(errMessage, trace)
			s.finalizeRun(task, model.RunStatusFailed, &errMessage)
			s.emitRunFinalized(task, model.RunStatusFailed, errMessage)
			s.publishStateMetrics()
			logger.Errorw("task panicked", "panic", r)
		}
	}()

	progress := func(createdDelta, updatedDelta, errorsDelta int) error {
		if err := taskCtx.Err(); err != nil {
			return err
		}
		if err := s.store.ScrapingRun().RecordProgress(context.Background(), task.RunID(), createdDelta, updatedDelta, errorsDelta); err != nil {
			logger.Errorw("failed to record run progress", "error", err)
		}
		return nil
	}

	result, err := s.collectors[task.Kind()].Collect(taskCtx, progress)

	switch {
	case task.isCancelRequested() || errors.Is(err, context.Canceled):
		task.cancelled()
		s.finalizeRun(task, model.RunStatusCancelled, strPtr("cancelled by user"))
		s.emitRunFinalized(task, model.RunStatusCancelled, "cancelled by user")
		logger.Info("task cancelled")
	case err != nil:
		errMessage := err.Error()
		task.fail(errMessage, "")
		s.finalizeRun(task, model.RunStatusFailed, &errMessage)
		s.emitRunFinalized(task, model.RunStatusFailed, errMessage)
		logger.Errorw("task failed", "error", err)
	default:
		task.complete(result)
		s.finalizeRun(task, model.RunStatusCompleted, nil)
		s.emitRunFinalized(task, model.RunStatusCompleted, "")
		logger.Infow("task completed",
			"records_created", result.RecordsCreated,
			"records_updated", result.RecordsUpdated,
			"errors_count", result.ErrorsCount)
	}
	s.publishStateMetrics()
}

// finalizeRun is best effort from the worker's point of view: a run already
// finalized (for example cancelled while the worker was finishing) stays as
// it is, which is exactly the semantics Finalize enforces.
func (s *Scheduler) finalizeRun(task *Task, status model.RunStatus, message *string) {
	err := s.store.ScrapingRun().Finalize(context.Background(), task.RunID(), status, message)
	if err == nil {
		return
	}
	if errors.Is(err, store.ErrRunAlreadyFinalized) {
		zap.S().Named("scheduler").Warnw("run already finalized", "run_id", task.RunID(), "attempted_status", status)
		return
	}
	zap.S().Named("scheduler").Errorw("failed to finalize run", "run_id", task.RunID(), "error", err)
}

func (s *Scheduler) emitRunStarted(task *Task) {
	if s.eventWriter == nil {
		return
	}
	event := events.RunStartedEvent{
		RunID:     task.RunID().String(),
		TaskID:    task.ID(),
		JobKind:   string(task.Kind()),
		StartedAt: time.Now().UTC(),
	}
	if err := s.eventWriter.WriteRunStarted(context.Background(), event); err != nil {
		zap.S().Named("scheduler").Errorw("failed to write event", "error", err, "event_type", events.TypeRunStarted)
	}
}

func (s *Scheduler) emitRunFinalized(task *Task, status model.RunStatus, errMessage string) {
	if s.eventWriter == nil {
		return
	}

	event := events.RunFinalizedEvent{
		RunID:   task.RunID().String(),
		TaskID:  task.ID(),
		JobKind: string(task.Kind()),
		Status:  string(status),
		Error:   errMessage,
	}
	if run, err := s.store.ScrapingRun().Get(context.Background(), task.RunID()); err == nil {
		event.RecordsCreated = run.RecordsCreated
		event.RecordsUpdated = run.RecordsUpdated
		event.ErrorsCount = run.ErrorsCount
	}

	if err := s.eventWriter.WriteRunFinalized(context.Background(), event); err != nil {
		zap.S().Named("scheduler").Errorw("failed to write event", "error", err, "event_type", events.TypeRunFinalized)
	}
}

func (s *Scheduler) publishStateMetrics() {
	counts := s.registry.stateCounts()
	for _, state := range []State{StatePending, StateRunning, StateCompleted, StateFailed, StateCancelled} {
		metrics.UpdateTaskStateCountMetric(string(state), counts[state])
	}
}

func strPtr(s string) *string {
	return &s
}
