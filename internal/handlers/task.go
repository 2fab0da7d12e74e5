package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/openpolicy/civicdata/internal/tasks"
)

type ScheduleRequest struct {
	TaskType string `json:"task_type"`
}

func (h *Handler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Error: "invalid request body"})
		return
	}
	if req.TaskType == "" {
		render.Status(r, http.StatusBadRequest)
		_ = render.Render(w, r, ErrorReply{Error: "task_type is required"})
		return
	}

	taskID, err := h.tasks.Schedule(r.Context(), req.TaskType)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	_ = render.Render(w, r, ScheduleReply{TaskID: taskID, Status: string(tasks.StatePending)})
}

func (h *Handler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	status, err := h.tasks.GetStatus(r.Context(), taskID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	reply := TaskStatusReply{
		TaskID: status.TaskID,
		Status: string(status.State),
	}
	if status.Result != nil {
		reply.Result = status.Result
	}
	if status.Error != "" {
		reply.Error = status.Error
	}
	if status.Traceback != "" {
		reply.Traceback = status.Traceback
	}
	_ = render.Render(w, r, reply)
}

func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")

	cancelled, err := h.tasks.Cancel(r.Context(), taskID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, CancelReply{Success: cancelled})
}

func (h *Handler) ListScrapingRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.tasks.ListRuns(r.Context())
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	reply := make([]render.Renderer, 0, len(runs))
	for _, run := range runs {
		item := ScrapingRunReply{
			ID:                run.ID.String(),
			TaskID:            run.TaskID,
			JurisdictionTypes: run.JurisdictionTypes,
			Status:            string(run.Status),
			RecordsCreated:    run.RecordsCreated,
			RecordsUpdated:    run.RecordsUpdated,
			ErrorsCount:       run.ErrorsCount,
			StartedAt:         run.StartedAt,
			CompletedAt:       run.CompletedAt,
		}
		if run.ErrorMessage != nil {
			item.ErrorMessage = *run.ErrorMessage
		}
		reply = append(reply, item)
	}
	_ = render.RenderList(w, r, reply)
}
