package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openpolicy/civicdata/internal/store/model"
	"github.com/openpolicy/civicdata/internal/tasks"
)

// TaskService fronts the scheduler for the REST layer, translating scheduler
// errors into the service error types handlers know how to map to statuses.
type TaskService struct {
	scheduler *tasks.Scheduler
}

func NewTaskService(scheduler *tasks.Scheduler) *TaskService {
	return &TaskService{scheduler: scheduler}
}

func (s *TaskService) Schedule(ctx context.Context, taskType string) (string, error) {
	kind := tasks.JobKind(strings.ToLower(strings.TrimSpace(taskType)))

	taskID, err := s.scheduler.Schedule(ctx, kind)
	switch {
	case err == nil:
		return taskID, nil
	case errors.Is(err, tasks.ErrUnknownJobKind):
		return "", NewErrInvalidJobKind(taskType)
	case errors.Is(err, tasks.ErrSchedulerUnavailable):
		return "", NewErrSchedulerBusy()
	case errors.Is(err, tasks.ErrKindAlreadyActive):
		return "", NewErrJobConflict(string(kind))
	default:
		zap.S().Named("task_service").Errorw("failed to schedule task", "task_type", taskType, "error", err)
		return "", err
	}
}

func (s *TaskService) GetStatus(ctx context.Context, taskID string) (tasks.Status, error) {
	status, err := s.scheduler.GetStatus(taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			return tasks.Status{}, NewErrTaskNotFound(taskID)
		}
		return tasks.Status{}, err
	}
	return status, nil
}

func (s *TaskService) Cancel(ctx context.Context, taskID string) (bool, error) {
	cancelled, err := s.scheduler.Cancel(taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			return false, NewErrTaskNotFound(taskID)
		}
		return false, err
	}
	return cancelled, nil
}

func (s *TaskService) ListRuns(ctx context.Context) (model.ScrapingRunList, error) {
	return s.scheduler.ListRecentRuns(ctx)
}
