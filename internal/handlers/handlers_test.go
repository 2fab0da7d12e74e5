package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/policy"
	"github.com/openpolicy/civicdata/internal/quality"
	"github.com/openpolicy/civicdata/internal/service"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
	"github.com/openpolicy/civicdata/internal/tasks"
)

type stubEngine struct {
	health *policy.EngineHealth
	err    error
}

func (s *stubEngine) Decision(_ context.Context, _ policy.DecisionInput) (*policy.EngineDecision, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &policy.EngineDecision{Allow: true}, nil
}

func (s *stubEngine) Health(_ context.Context) (*policy.EngineHealth, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.health, nil
}

func newTestRouter(t *testing.T) (*chi.Mux, store.Store) {
	t.Helper()

	db, err := store.InitDB(config.NewDefault())
	require.NoError(t, err)
	s := store.NewStore(db)
	require.NoError(t, s.InitialMigration())
	t.Cleanup(func() { _ = s.Close() })

	validator := quality.NewValidator(nil)
	cfg := config.SchedulerConfig{Workers: 2, QueueDepth: 16, RunHistory: 50, AllowConcurrentSameKind: true}
	scheduler := tasks.NewScheduler(cfg, s, tasks.DefaultCollectors(s, validator))

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	t.Cleanup(cancel)

	evaluator := policy.NewEvaluator(&stubEngine{health: &policy.EngineHealth{Status: "ok", Version: "1.6.0"}})

	handler := NewHandler(
		service.NewTaskService(scheduler),
		service.NewBillService(s),
		service.NewValidationService(s, validator),
		service.NewHealthService(s, evaluator),
	)

	router := chi.NewRouter()
	handler.RegisterApi(router)
	handler.RegisterHealth(router)
	return router, s
}

func doRequest(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestScheduleEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", ScheduleRequest{TaskType: "test"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	reply := decode[ScheduleReply](t, rec)
	require.NotEmpty(t, reply.TaskID)
	require.Equal(t, "PENDING", reply.Status)
}

func TestScheduleEndpointInvalidType(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", ScheduleRequest{TaskType: "galactic"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	reply := decode[ErrorReply](t, rec)
	require.Contains(t, reply.Error, "invalid task type")
}

func TestScheduleEndpointMissingType(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", ScheduleRequest{TaskType: "test"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	taskID := decode[ScheduleReply](t, rec).TaskID

	var status TaskStatusReply
	require.Eventually(t, func() bool {
		rec := doRequest(t, router, http.MethodGet, "/tasks/"+taskID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		status = decode[TaskStatusReply](t, rec)
		return status.Status == "COMPLETED"
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, taskID, status.TaskID)
	require.NotNil(t, status.Result)
	require.Equal(t, 5, status.Result.RecordsCreated)
	require.Empty(t, status.Error)
}

func TestTaskStatusEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/tasks/unknown-task", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelTaskEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", ScheduleRequest{TaskType: "federal"})
	taskID := decode[ScheduleReply](t, rec).TaskID

	rec = doRequest(t, router, http.MethodDelete, "/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// the task may already be terminal when the cancel lands; either answer
	// is a well-formed CancelReply
	decode[CancelReply](t, rec)
}

func TestScrapingRunsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/schedule", ScheduleRequest{TaskType: "test"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/scraping-runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the body is a plain array of runs
	runs := decode[[]ScrapingRunReply](t, rec)
	require.Len(t, runs, 1)
	require.Equal(t, "test", runs[0].JurisdictionTypes)
	require.NotEmpty(t, runs[0].TaskID)
}

func TestBillsAndStatsEndpoints(t *testing.T) {
	router, s := newTestRouter(t)

	jurisdiction, err := s.Jurisdiction().Upsert(context.Background(), model.Jurisdiction{
		Name: "Parliament of Canada",
		Type: model.JurisdictionTypeFederal,
	})
	require.NoError(t, err)

	_, err = s.Bill().Upsert(context.Background(), model.Bill{
		JurisdictionID: jurisdiction.ID,
		Identifier:     "C-7",
		Title:          "An Act respecting carbon pricing",
		Summary:        "Adjusts the carbon pricing schedule.",
		Status:         model.BillStatusIntroduced,
	})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/api/bills?search=carbon", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bills := decode[BillListReply](t, rec)
	require.Len(t, bills.Bills, 1)
	require.Equal(t, "C-7", bills.Bills[0].Identifier)

	rec = doRequest(t, router, http.MethodGet, "/api/bills/"+bills.Bills[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/bills/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/jurisdictions?type=federal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jurisdictions := decode[JurisdictionListReply](t, rec)
	require.Len(t, jurisdictions.Jurisdictions, 1)

	rec = doRequest(t, router, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsReply](t, rec)
	require.Equal(t, int64(1), stats.Stats.TotalBills)
	require.Equal(t, int64(1), stats.Stats.FederalJurisdictions)
}

func TestFederalBillsValidationEndpoint(t *testing.T) {
	router, s := newTestRouter(t)

	jurisdiction, err := s.Jurisdiction().Upsert(context.Background(), model.Jurisdiction{
		Name: "Parliament of Canada",
		Type: model.JurisdictionTypeFederal,
	})
	require.NoError(t, err)

	_, err = s.Bill().Upsert(context.Background(), model.Bill{
		JurisdictionID: jurisdiction.ID,
		Identifier:     "C-9",
		Title:          "An Act respecting budget transparency",
		Status:         model.BillStatusIntroduced,
	})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/parliamentary/validation/federal-bills", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the body is a plain array of per-bill results
	results := decode[[]service.ValidationResult](t, rec)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].BillID)
	require.Equal(t, "C-9", results[0].Identifier)
	require.Equal(t, "An Act respecting budget transparency", results[0].Title)
	require.Equal(t, 80, results[0].QualityScore)
	require.True(t, results[0].IsCritical)
	require.Equal(t, []string{"missing summary"}, results[0].Issues)
}

func TestPolicyHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/parliamentary/policy/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decode[PolicyHealthReply](t, rec)
	require.Equal(t, "ok", reply.Status)
	require.Equal(t, "1.6.0", reply.OpaVersion)
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[HealthReply](t, rec).Status)
}
