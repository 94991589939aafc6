package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/employeeid"
	"Mansoor88-6/overtime-agent/internal/history"
	"Mansoor88-6/overtime-agent/internal/models"
	"Mansoor88-6/overtime-agent/internal/service"
	"Mansoor88-6/overtime-agent/internal/validation"
	"Mansoor88-6/overtime-agent/internal/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AttendanceService is the form logic served over HTTP
type AttendanceService interface {
	LoadReferenceData(ctx context.Context, refresh bool) (*service.ReferenceData, error)
	LookupEmployee(ctx context.Context, rawID string) (models.Employee, error)
	Validate(shiftLabel, timeIn, timeOut string) validation.Result
	Submit(ctx context.Context, in service.FormInput) models.SubmitResult
	History(ctx context.Context) ([]models.HistoryEntry, error)
	HistoryEntry(ctx context.Context, id string) (models.HistoryEntry, error)
}

// ValidateRequest is the body of POST /api/v1/validate
type ValidateRequest struct {
	ShiftLabel string `json:"shiftLabel" validate:"max=64"`
	TimeIn     string `json:"timeIn" validate:"max=5"`
	TimeOut    string `json:"timeOut" validate:"max=5"`
}

// SubmissionRequest is the body of POST /api/v1/submissions. Field rules
// beyond the shape of the payload are applied by the service.
type SubmissionRequest struct {
	EmployeeID   string `json:"employeeId" validate:"required,max=20"`
	Date         string `json:"date" validate:"omitempty,max=10"`
	TimeIn       string `json:"timeIn" validate:"max=5"`
	TimeOut      string `json:"timeOut" validate:"max=5"`
	ShiftLabel   string `json:"shiftLabel" validate:"max=64"`
	DutyEngineer string `json:"dutyEngineer" validate:"max=128"`
	Notes        string `json:"notes" validate:"max=1000"`
}

// ConfirmationRequest is the body of POST /api/v1/confirmations
type ConfirmationRequest struct {
	EmployeeID   string          `json:"employeeId" validate:"required,max=20"`
	Rows         []models.RowRef `json:"rows" validate:"required,min=1,dive,gt=0"`
	Acknowledged bool            `json:"acknowledged"`
}

// AttendanceServer handles requests from the browser form
type AttendanceServer struct {
	service     AttendanceService
	newWorkflow func() *workflow.Workflow
	validate    *validator.Validate
	logger      *zap.Logger

	// employees with a confirmation outstanding
	mu         sync.Mutex
	confirming map[string]bool
}

// NewAttendanceServer creates the handlers. newWorkflow builds a fresh
// confirmation workflow for each confirmation request.
func NewAttendanceServer(svc AttendanceService, newWorkflow func() *workflow.Workflow, logger *zap.Logger) *AttendanceServer {
	v := validator.New()
	// report json names in validation details
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &AttendanceServer{
		service:     svc,
		newWorkflow: newWorkflow,
		validate:    v,
		logger:      logger,
		confirming:  map[string]bool{},
	}
}

// handleHealth provides a health check endpoint
func (s *AttendanceServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "", map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (s *AttendanceServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !s.decode(w, r, &req) {
		return
	}

	writeData(w, http.StatusOK, "", s.service.Validate(req.ShiftLabel, req.TimeIn, req.TimeOut))
}

func (s *AttendanceServer) handleEmployee(w http.ResponseWriter, r *http.Request) {
	employee, err := s.service.LookupEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Debug("Employee lookup failed", zap.Error(err))
		writeFailure(w, err)
		return
	}

	writeData(w, http.StatusOK, "", employee)
}

// handleFormatID formats a partially typed ID for the input mask
func (s *AttendanceServer) handleFormatID(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	writeData(w, http.StatusOK, "", map[string]any{
		"formatted": employeeid.FormatPartial(raw),
		"complete":  employeeid.IsComplete(raw),
	})
}

func (s *AttendanceServer) handleReference(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"
	data, err := s.service.LoadReferenceData(r.Context(), refresh)
	if err != nil {
		s.logger.Error("Failed to load reference data", zap.Error(err))
		writeFailure(w, err)
		return
	}

	writeData(w, http.StatusOK, "", data)
}

func (s *AttendanceServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := s.service.Submit(r.Context(), service.FormInput{
		EmployeeID:   req.EmployeeID,
		Date:         req.Date,
		TimeIn:       req.TimeIn,
		TimeOut:      req.TimeOut,
		ShiftLabel:   req.ShiftLabel,
		DutyEngineer: req.DutyEngineer,
		Notes:        req.Notes,
	})
	if !res.Success {
		status, code := http.StatusUnprocessableEntity, "REJECTED"
		if res.Err != nil {
			status, code = classify(res.Err)
		}
		writeJSON(w, status, Response{
			Success: false,
			Data:    res,
			Error: &ErrorDetail{
				Code:      code,
				Message:   res.ErrorText(),
				Retryable: client.Retryable(res.Err),
			},
		})
		return
	}

	writeData(w, http.StatusCreated, res.Message, res)
}

func (s *AttendanceServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context())
	if err != nil {
		s.logger.Error("Failed to read history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to read history", nil)
		return
	}

	writeData(w, http.StatusOK, "", entries)
}

func (s *AttendanceServer) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.HistoryEntry(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "history entry not found", nil)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read history entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to read history", nil)
		return
	}

	writeData(w, http.StatusOK, "", entry)
}

func (s *AttendanceServer) handlePending(w http.ResponseWriter, r *http.Request) {
	wf := s.newWorkflow()
	if err := wf.Search(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}

	snap := wf.Snapshot()
	writeData(w, http.StatusOK, snap.Message, snap)
}

func (s *AttendanceServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmationRequest
	if !s.decode(w, r, &req) {
		return
	}

	id, err := employeeid.Normalize(req.EmployeeID)
	if err != nil {
		writeFailure(w, workflow.ErrInvalidID)
		return
	}
	if !s.beginConfirm(id) {
		s.logger.Warn("Confirmation already in progress", zap.String("employee_id", id))
		writeFailure(w, workflow.ErrConfirmInFlight)
		return
	}
	defer s.endConfirm(id)

	wf := s.newWorkflow()
	if err := wf.Search(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	if wf.Snapshot().State == workflow.StateViewOnlyReady {
		writeFailure(w, workflow.ErrOutsideWindow)
		return
	}

	seen := make(map[models.RowRef]bool, len(req.Rows))
	for _, row := range req.Rows {
		if seen[row] {
			continue
		}
		seen[row] = true
		if err := wf.Toggle(row); err != nil {
			writeFailure(w, err)
			return
		}
	}

	res, err := wf.Confirm(r.Context(), req.Acknowledged)
	if err != nil {
		writeFailure(w, err)
		return
	}

	// the form leaves the page after ExitDelay
	snap := wf.Snapshot()
	writeData(w, http.StatusOK, snap.Message, map[string]any{
		"confirmed":   res.Confirmed,
		"exitDelayMs": workflow.ExitDelay.Milliseconds(),
	})
}

// beginConfirm claims the employee for one confirmation request; false
// means another request holds it
func (s *AttendanceServer) beginConfirm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirming[id] {
		return false
	}
	s.confirming[id] = true
	return true
}

func (s *AttendanceServer) endConfirm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirming, id)
}

// decode reads a JSON body into dst and checks its struct tags; on failure
// the response has been written and false is returned
func (s *AttendanceServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.logger.Warn("Failed to decode request", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "validation failed", details)
		return false
	}
	return true
}
