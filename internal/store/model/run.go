package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the status is a sink state. A finalized run
// never leaves a terminal status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// ScrapingRun is the durable outcome record of one collection task. It is
// weakly linked to the task by TaskID and outlives the in-memory task entry.
type ScrapingRun struct {
	ID                uuid.UUID `gorm:"primaryKey"`
	TaskID            string    `gorm:"index"`
	JurisdictionTypes string    `gorm:"type:VARCHAR(255)"` // comma separated job kinds
	Status            RunStatus `gorm:"not null;index"`
	RecordsCreated    int       `gorm:"not null;default:0"`
	RecordsUpdated    int       `gorm:"not null;default:0"`
	ErrorsCount       int       `gorm:"not null;default:0"`
	StartedAt         time.Time `gorm:"not null;index"`
	CompletedAt       *time.Time
	ErrorMessage      *string
	CreatedAt         time.Time
}

type ScrapingRunList []ScrapingRun

func (r ScrapingRun) String() string {
	v, _ := json.Marshal(r)
	return string(v)
}
