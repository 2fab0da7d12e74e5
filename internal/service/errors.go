package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id string, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrTaskNotFound(id string) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "task")
}

func NewErrBillNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "bill")
}

func NewErrJurisdictionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id.String(), "jurisdiction")
}

type ErrInvalidJobKind struct {
	error
}

func NewErrInvalidJobKind(kind string) *ErrInvalidJobKind {
	return &ErrInvalidJobKind{fmt.Errorf("invalid task type: %s", kind)}
}

type ErrSchedulerBusy struct {
	error
}

func NewErrSchedulerBusy() *ErrSchedulerBusy {
	return &ErrSchedulerBusy{fmt.Errorf("scheduler is at capacity, retry later")}
}

type ErrJobConflict struct {
	error
}

func NewErrJobConflict(kind string) *ErrJobConflict {
	return &ErrJobConflict{fmt.Errorf("a %s job is already active", kind)}
}
