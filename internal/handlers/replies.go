package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/openpolicy/civicdata/internal/service"
	"github.com/openpolicy/civicdata/internal/store/model"
	"github.com/openpolicy/civicdata/internal/tasks"
)

type ErrorReply struct {
	Error string `json:"error"`
}

type ScheduleReply struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type TaskStatusReply struct {
	TaskID    string        `json:"task_id"`
	Status    string        `json:"status"`
	Result    *tasks.Result `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Traceback string        `json:"traceback,omitempty"`
}

type CancelReply struct {
	Success bool `json:"success"`
}

type ScrapingRunReply struct {
	ID                string     `json:"id"`
	TaskID            string     `json:"task_id"`
	JurisdictionTypes string     `json:"jurisdiction_types"`
	Status            string     `json:"status"`
	RecordsCreated    int        `json:"records_created"`
	RecordsUpdated    int        `json:"records_updated"`
	ErrorsCount       int        `json:"errors_count"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

type BillReply struct {
	ID             string     `json:"id"`
	JurisdictionID string     `json:"jurisdiction_id"`
	Identifier     string     `json:"identifier"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	Status         string     `json:"status"`
	IntroducedDate *time.Time `json:"introduced_date,omitempty"`
	SourceURL      string     `json:"source_url"`
}

type BillListReply struct {
	Bills []BillReply `json:"bills"`
}

type JurisdictionReply struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Province string `json:"province,omitempty"`
	URL      string `json:"url"`
}

type JurisdictionListReply struct {
	Jurisdictions []JurisdictionReply `json:"jurisdictions"`
}

type StatsReply struct {
	Stats model.Stats `json:"stats"`
}

type ValidationResultReply struct {
	service.ValidationResult
}

type HealthReply struct {
	Status string `json:"status"`
}

type PolicyHealthReply struct {
	Status     string `json:"status"`
	OpaVersion string `json:"opa_version,omitempty"`
}

func (e ErrorReply) Render(w http.ResponseWriter, r *http.Request) error          { return nil }
func (s ScheduleReply) Render(w http.ResponseWriter, r *http.Request) error       { return nil }
func (t TaskStatusReply) Render(w http.ResponseWriter, r *http.Request) error     { return nil }
func (c CancelReply) Render(w http.ResponseWriter, r *http.Request) error         { return nil }
func (s ScrapingRunReply) Render(w http.ResponseWriter, r *http.Request) error      { return nil }
func (b BillListReply) Render(w http.ResponseWriter, r *http.Request) error         { return nil }
func (b BillReply) Render(w http.ResponseWriter, r *http.Request) error             { return nil }
func (j JurisdictionListReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }
func (j JurisdictionReply) Render(w http.ResponseWriter, r *http.Request) error     { return nil }
func (s StatsReply) Render(w http.ResponseWriter, r *http.Request) error            { return nil }
func (v ValidationResultReply) Render(w http.ResponseWriter, r *http.Request) error { return nil }
func (h HealthReply) Render(w http.ResponseWriter, r *http.Request) error           { return nil }
func (p PolicyHealthReply) Render(w http.ResponseWriter, r *http.Request) error     { return nil }

// renderServiceError maps service error types onto HTTP statuses.
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *service.ErrResourceNotFound:
		status = http.StatusNotFound
	case *service.ErrInvalidJobKind:
		status = http.StatusBadRequest
	case *service.ErrJobConflict:
		status = http.StatusConflict
	case *service.ErrSchedulerBusy:
		status = http.StatusServiceUnavailable
	}
	render.Status(r, status)
	_ = render.Render(w, r, ErrorReply{Error: err.Error()})
}
