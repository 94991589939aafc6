package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/employeeid"
	"Mansoor88-6/overtime-agent/internal/history"
	"Mansoor88-6/overtime-agent/internal/models"
	"Mansoor88-6/overtime-agent/internal/service"
	"Mansoor88-6/overtime-agent/internal/validation"
	"Mansoor88-6/overtime-agent/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const anaID = "0801-1990-12345"

type fakeService struct {
	submitted []service.FormInput
	submitErr error
	refErr    error
	refreshed []bool
}

func (f *fakeService) LoadReferenceData(ctx context.Context, refresh bool) (*service.ReferenceData, error) {
	f.refreshed = append(f.refreshed, refresh)
	if f.refErr != nil {
		return nil, f.refErr
	}
	return &service.ReferenceData{Employees: 1, ShiftLabels: []string{"06:00-15:00"}, Engineers: []string{"Ing. Perez"}}, nil
}

func (f *fakeService) LookupEmployee(ctx context.Context, rawID string) (models.Employee, error) {
	id, err := employeeid.Normalize(rawID)
	if err != nil {
		return models.Employee{}, err
	}
	if id != anaID {
		return models.Employee{}, service.ErrEmployeeNotRegistered
	}
	return models.Employee{ID: anaID, FullName: "Ana Lopez"}, nil
}

func (f *fakeService) Validate(shiftLabel, timeIn, timeOut string) validation.Result {
	return validation.NewValidator(nil).Validate(shiftLabel, timeIn, timeOut)
}

func (f *fakeService) Submit(ctx context.Context, in service.FormInput) models.SubmitResult {
	f.submitted = append(f.submitted, in)
	if f.submitErr != nil {
		msg := client.UserMessage(f.submitErr)
		return models.SubmitResult{Message: msg, Errors: []string{msg}, Err: f.submitErr}
	}
	if in.ShiftLabel == "" {
		return models.SubmitResult{
			Message: service.ErrShiftRequired.Error(),
			Errors:  []string{service.ErrShiftRequired.Error()},
			Err:     service.ErrShiftRequired,
		}
	}
	return models.SubmitResult{Success: true, Message: "attendance recorded successfully"}
}

func (f *fakeService) History(ctx context.Context) ([]models.HistoryEntry, error) {
	return []models.HistoryEntry{{ID: "h1", EmployeeID: anaID}}, nil
}

func (f *fakeService) HistoryEntry(ctx context.Context, id string) (models.HistoryEntry, error) {
	if id != "h1" {
		return models.HistoryEntry{}, history.ErrNotFound
	}
	return models.HistoryEntry{ID: "h1", EmployeeID: anaID}, nil
}

type fakePending struct {
	// release, when set, blocks ConfirmBatch until closed
	release chan struct{}
	entered chan struct{}
	calls   atomic.Int32

	mu        sync.Mutex
	confirmed [][]models.RowRef
}

func (f *fakePending) FetchPending(ctx context.Context, id string) (*models.PendingResult, error) {
	if id != anaID {
		return nil, &client.BusinessError{Message: "Employee not found"}
	}
	return &models.PendingResult{
		Employee: &models.Employee{ID: anaID, FullName: "Ana Lopez"},
		Pending:  []models.PendingRecord{{RowRef: 12}, {RowRef: 13}},
	}, nil
}

func (f *fakePending) ConfirmBatch(ctx context.Context, id string, rows []models.RowRef) (models.ConfirmResult, error) {
	if f.calls.Add(1) == 1 && f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, rows)
	return models.ConfirmResult{Confirmed: len(rows)}, nil
}

func newTestRouter(t *testing.T, day int) (http.Handler, *fakeService, *fakePending) {
	t.Helper()
	svc := &fakeService{}
	pending := &fakePending{}
	now := func() time.Time { return time.Date(2026, 10, day, 9, 0, 0, 0, time.UTC) }
	newWorkflow := func() *workflow.Workflow {
		return workflow.New(pending, workflow.DefaultWindow(), now, zap.NewNop())
	}
	s := NewAttendanceServer(svc, newWorkflow, zap.NewNop())
	return NewRouter(s, nil, zap.NewNop()), svc, pending
}

func do(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestValidateEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodPost, "/api/v1/validate", ValidateRequest{
		ShiftLabel: "06:00-15:00", TimeIn: "06:00", TimeOut: "17:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, 2.0, data["overtimeHours"])

	rec, resp = do(t, h, http.MethodPost, "/api/v1/validate", ValidateRequest{
		ShiftLabel: "06:00-15:00", TimeIn: "06:00", TimeOut: "15:00",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = resp.Data.(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, validation.ErrNoOvertime.Error(), data["reason"])
}

func TestValidateRejectsBadBody(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := do(t, h, http.MethodPost, "/api/v1/validate", ValidateRequest{TimeIn: "06:00:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "max", resp.Error.Details["timeIn"])
}

func TestEmployeeEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/employees/0801199012345", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana Lopez", resp.Data.(map[string]any)["fullName"])

	rec, resp = do(t, h, http.MethodGet, "/api/v1/employees/0801", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "enter a complete valid id", resp.Error.Message)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/employees/0801-2000-00001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReferenceEndpointMapsTimeout(t *testing.T) {
	h, svc, _ := newTestRouter(t, 5)
	svc.refErr = &client.TimeoutError{Action: "getShifts", Timeout: 30 * time.Second}

	rec, resp := do(t, h, http.MethodGet, "/api/v1/reference", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "operation timed out (30s)", resp.Error.Message)
	assert.True(t, resp.Error.Retryable)
}

func TestReferenceEndpointRefresh(t *testing.T) {
	h, svc, _ := newTestRouter(t, 5)

	rec, _ := do(t, h, http.MethodGet, "/api/v1/reference", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/v1/reference?refresh=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []bool{false, true}, svc.refreshed)
}

func TestFormatIDEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/employees/080119/format", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "0801-19", data["formatted"])
	assert.Equal(t, false, data["complete"])

	_, resp = do(t, h, http.MethodGet, "/api/v1/employees/0801199012345/format", nil)
	data = resp.Data.(map[string]any)
	assert.Equal(t, anaID, data["formatted"])
	assert.Equal(t, true, data["complete"])
}

func TestSubmissionEndpoint(t *testing.T) {
	h, svc, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodPost, "/api/v1/submissions", SubmissionRequest{
		EmployeeID: anaID, TimeIn: "06:00", TimeOut: "17:00", ShiftLabel: "06:00-15:00", DutyEngineer: "Ing. Perez",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "06:00-15:00", svc.submitted[0].ShiftLabel)

	rec, resp = do(t, h, http.MethodPost, "/api/v1/submissions", SubmissionRequest{EmployeeID: anaID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "select a shift", resp.Error.Message)
	assert.False(t, resp.Error.Retryable)

	rec, resp = do(t, h, http.MethodPost, "/api/v1/submissions", SubmissionRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "required", resp.Error.Details["employeeId"])
	assert.Len(t, svc.submitted, 2)
}

func TestSubmissionEndpointKeepsFailureClass(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"timeout", &client.TimeoutError{Action: "submitAttendance", Timeout: 30 * time.Second}, http.StatusGatewayTimeout, "TIMEOUT", true},
		{"unreachable", &client.ConnectionError{Action: "submitAttendance"}, http.StatusBadGateway, "BACKEND_UNAVAILABLE", true},
		{"business", &client.BusinessError{Message: "record already exists"}, http.StatusUnprocessableEntity, "REJECTED", false},
		{"not registered", service.ErrEmployeeNotRegistered, http.StatusNotFound, "NOT_FOUND", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, _ := newTestRouter(t, 5)
			svc.submitErr = tt.err

			rec, resp := do(t, h, http.MethodPost, "/api/v1/submissions", SubmissionRequest{EmployeeID: anaID})
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, client.UserMessage(tt.err), resp.Error.Message)
			assert.Equal(t, tt.retryable, resp.Error.Retryable)
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, resp.Data.([]any), 1)

	rec, resp = do(t, h, http.MethodGet, "/api/v1/history/h1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, anaID, resp.Data.(map[string]any)["employeeId"])

	rec, _ = do(t, h, http.MethodGet, "/api/v1/history/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodGet, "/api/v1/pending/"+anaID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2 record(s) pending confirmation", resp.Message)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "pending_ready", data["state"])
	assert.Equal(t, true, data["canSelect"])

	rec, resp = do(t, h, http.MethodGet, "/api/v1/pending/0801-2000-00001", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Employee not found", resp.Error.Message)
}

func TestConfirmationEndpoint(t *testing.T) {
	h, _, pending := newTestRouter(t, 5)

	rec, resp := do(t, h, http.MethodPost, "/api/v1/confirmations", ConfirmationRequest{
		EmployeeID: anaID, Rows: []models.RowRef{13, 13}, Acknowledged: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1 record(s) confirmed successfully", resp.Message)
	assert.Equal(t, [][]models.RowRef{{13}}, pending.confirmed)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["confirmed"])
	assert.EqualValues(t, 1500, data["exitDelayMs"])

	rec, _ = do(t, h, http.MethodPost, "/api/v1/confirmations", ConfirmationRequest{
		EmployeeID: anaID, Rows: []models.RowRef{12},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/confirmations", ConfirmationRequest{
		EmployeeID: anaID, Rows: []models.RowRef{99}, Acknowledged: true,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, resp = do(t, h, http.MethodPost, "/api/v1/confirmations", ConfirmationRequest{EmployeeID: anaID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "required", resp.Error.Details["rows"])

	assert.Len(t, pending.confirmed, 1)
}

func TestConcurrentConfirmationsSendOneBatch(t *testing.T) {
	h, _, pending := newTestRouter(t, 5)
	pending.release = make(chan struct{})
	pending.entered = make(chan struct{})

	body := ConfirmationRequest{EmployeeID: anaID, Rows: []models.RowRef{12}, Acknowledged: true}

	first := make(chan int, 1)
	go func() {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/confirmations", &buf))
		first <- rec.Code
	}()
	<-pending.entered

	body.EmployeeID = "0801199012345"
	rec, resp := do(t, h, http.MethodPost, "/api/v1/confirmations", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, workflow.ErrConfirmInFlight.Error(), resp.Error.Message)

	close(pending.release)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, int32(1), pending.calls.Load())

	// the employee is free again once the batch resolves
	rec, _ = do(t, h, http.MethodPost, "/api/v1/confirmations", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), pending.calls.Load())
}

func TestConfirmationOutsideWindow(t *testing.T) {
	h, _, pending := newTestRouter(t, 20)

	rec, resp := do(t, h, http.MethodPost, "/api/v1/confirmations", ConfirmationRequest{
		EmployeeID: anaID, Rows: []models.RowRef{12}, Acknowledged: true,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, workflow.ErrOutsideWindow.Error(), resp.Error.Message)
	assert.Empty(t, pending.confirmed)
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter(t, 5)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/submissions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
