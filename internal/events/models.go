package events

import "time"

type RunStartedEvent struct {
	RunID     string    `json:"run_id"`
	TaskID    string    `json:"task_id"`
	JobKind   string    `json:"job_kind"`
	StartedAt time.Time `json:"started_at"`
}

type RunFinalizedEvent struct {
	RunID          string `json:"run_id"`
	TaskID         string `json:"task_id"`
	JobKind        string `json:"job_kind"`
	Status         string `json:"status"`
	RecordsCreated int    `json:"records_created"`
	RecordsUpdated int    `json:"records_updated"`
	ErrorsCount    int    `json:"errors_count"`
	Error          string `json:"error,omitempty"`
}
