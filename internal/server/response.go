package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/employeeid"
	"Mansoor88-6/overtime-agent/internal/service"
	"Mansoor88-6/overtime-agent/internal/workflow"
)

type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	writeJSON(w, statusCode, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeFailure maps err to a status code and user-facing message
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, Response{
		Success: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   client.UserMessage(err),
			Retryable: client.Retryable(err),
		},
	})
}

func classify(err error) (int, string) {
	var timeoutErr *client.TimeoutError
	var connErr *client.ConnectionError
	var businessErr *client.BusinessError
	var backendErr *client.BackendError

	switch {
	case errors.Is(err, employeeid.ErrIncomplete):
		return http.StatusBadRequest, "INVALID_ID"
	case errors.Is(err, service.ErrEmployeeNotRegistered):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, workflow.ErrConfirmInFlight),
		errors.Is(err, workflow.ErrNotReady),
		errors.Is(err, workflow.ErrOutsideWindow),
		errors.Is(err, workflow.ErrSearchBlocked):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, workflow.ErrUnknownRecord),
		errors.Is(err, workflow.ErrEmptySelection),
		errors.Is(err, workflow.ErrNotAcknowledged),
		service.IsInputError(err):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.As(err, &businessErr):
		return http.StatusUnprocessableEntity, "REJECTED"
	case errors.As(err, &connErr), errors.As(err, &backendErr):
		return http.StatusBadGateway, "BACKEND_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}
