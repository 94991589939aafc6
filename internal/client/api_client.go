package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Mansoor88-6/overtime-agent/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every backend call
	DefaultTimeout = 30 * time.Second
	// MaxResponseSize bounds the body read from the backend
	MaxResponseSize = 8 << 20
)

// Actions are the values of the "action" parameter understood by the backend
type Actions struct {
	GetEmployees     string
	GetShifts        string
	GetEngineers     string
	GetPending       string
	SubmitAttendance string
	ConfirmRecords   string
}

// DefaultActions returns the action names of the current backend script
func DefaultActions() Actions {
	return Actions{
		GetEmployees:     "getEmployees",
		GetShifts:        "getShifts",
		GetEngineers:     "getDutyEngineers",
		GetPending:       "getPendingRecords",
		SubmitAttendance: "submitAttendance",
		ConfirmRecords:   "confirmRecords",
	}
}

// APIClient handles communication with the spreadsheet-backed API.
// All actions go to the same endpoint, GETs as query parameters and
// POSTs as a JSON body carrying the action name.
type APIClient struct {
	baseURL    string
	actions    Actions
	timeout    time.Duration
	httpClient *http.Client
	cache      *EmployeeCache
	maxBody    int64
	now        func() time.Time
	logger     *zap.Logger
}

// NewAPIClient creates a new API client. A zero timeout means DefaultTimeout;
// a nil cache means a cache that never stays fresh.
func NewAPIClient(baseURL string, timeout time.Duration, cache *EmployeeCache, logger *zap.Logger) *APIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if cache == nil {
		cache = NewEmployeeCache(0, nil)
	}
	// per-call deadlines come from the request context, not http.Client.Timeout
	return &APIClient{
		baseURL:    baseURL,
		actions:    DefaultActions(),
		timeout:    timeout,
		httpClient: &http.Client{},
		cache:      cache,
		maxBody:    MaxResponseSize,
		now:        time.Now,
		logger:     logger,
	}
}

// SetActions overrides the action names; empty fields keep their current value
func (c *APIClient) SetActions(a Actions) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.actions.GetEmployees, a.GetEmployees)
	set(&c.actions.GetShifts, a.GetShifts)
	set(&c.actions.GetEngineers, a.GetEngineers)
	set(&c.actions.GetPending, a.GetPending)
	set(&c.actions.SubmitAttendance, a.SubmitAttendance)
	set(&c.actions.ConfirmRecords, a.ConfirmRecords)
}

type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

type employeesResponse struct {
	Success   bool `json:"success"`
	Employees map[string]struct {
		Nombre string `json:"nombre"`
	} `json:"employees"`
}

type labelsResponse struct {
	Success   bool              `json:"success"`
	Shifts    []json.RawMessage `json:"shifts"`
	Engineers []json.RawMessage `json:"engineers"`
}

type pendingResponse struct {
	Employee *struct {
		Nombre string `json:"nombre"`
	} `json:"employee"`
	Records []models.PendingRecord `json:"records"`
	Recent  []models.PendingRecord `json:"recent"`
	Latest  []models.PendingRecord `json:"ultimos5"`
}

type confirmResponse struct {
	Confirmed *int `json:"confirmed"`
}

// FetchEmployees returns the employee directory keyed by formatted ID.
// A fresh cached copy is returned without a request unless force is set.
// On failure the cache is left as it was.
func (c *APIClient) FetchEmployees(ctx context.Context, force bool) (map[string]models.Employee, error) {
	if !force {
		if employees, ok := c.cache.Get(); ok {
			c.logger.Debug("Employee cache hit", zap.Int("count", len(employees)))
			return employees, nil
		}
	}

	var resp employeesResponse
	if err := c.getJSON(ctx, c.actions.GetEmployees, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BusinessError{Action: c.actions.GetEmployees, Message: "failed to load employees"}
	}

	employees := make(map[string]models.Employee, len(resp.Employees))
	for id, e := range resp.Employees {
		employees[id] = models.Employee{ID: id, FullName: strings.TrimSpace(e.Nombre)}
	}
	c.cache.Set(employees)

	c.logger.Info("Employees loaded", zap.Int("count", len(employees)), zap.Bool("forced", force))
	return employees, nil
}

// LookupEmployee searches the last loaded directory without a request
func (c *APIClient) LookupEmployee(id string) (models.Employee, bool) {
	return c.cache.Lookup(id)
}

// FetchShiftLabels returns the shift labels in backend order
func (c *APIClient) FetchShiftLabels(ctx context.Context) ([]string, error) {
	var resp labelsResponse
	if err := c.getJSON(ctx, c.actions.GetShifts, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BusinessError{Action: c.actions.GetShifts, Message: "failed to load shifts"}
	}
	labels := decodeLabels(resp.Shifts)
	c.logger.Debug("Shifts loaded", zap.Int("count", len(labels)))
	return labels, nil
}

// FetchEngineers returns the duty engineers in backend order
func (c *APIClient) FetchEngineers(ctx context.Context) ([]string, error) {
	var resp labelsResponse
	if err := c.getJSON(ctx, c.actions.GetEngineers, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &BusinessError{Action: c.actions.GetEngineers, Message: "failed to load engineers"}
	}
	engineers := decodeLabels(resp.Engineers)
	c.logger.Debug("Engineers loaded", zap.Int("count", len(engineers)))
	return engineers, nil
}

// decodeLabels accepts plain strings and {texto|turno|nombre} objects
func decodeLabels(raw []json.RawMessage) []string {
	labels := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				labels = append(labels, s)
			}
			continue
		}
		var obj struct {
			Texto  string `json:"texto"`
			Turno  string `json:"turno"`
			Nombre string `json:"nombre"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		for _, v := range []string{obj.Texto, obj.Turno, obj.Nombre} {
			if v = strings.TrimSpace(v); v != "" {
				labels = append(labels, v)
				break
			}
		}
	}
	return labels
}

// Submit sends one attendance row. It never returns an error: transport and
// server failures come back as a result with Success false.
func (c *APIClient) Submit(ctx context.Context, s models.AttendanceSubmission) models.SubmitResult {
	payload := map[string]any{
		"row": s.Row(c.now()),
	}

	if err := c.postJSON(ctx, c.actions.SubmitAttendance, payload, nil); err != nil {
		msg := UserMessage(err)
		return models.SubmitResult{
			Success: false,
			Message: msg,
			Errors:  []string{msg},
			Err:     err,
		}
	}

	c.logger.Info("Attendance submitted",
		zap.String("employee_id", s.EmployeeID),
		zap.String("date", s.Date),
		zap.String("shift", s.ShiftLabel),
	)
	return models.SubmitResult{Success: true, Message: "attendance recorded successfully"}
}

// FetchPending returns the pending and recent records of an employee.
// An unknown employee comes back as a BusinessError with the server text.
func (c *APIClient) FetchPending(ctx context.Context, employeeID string) (*models.PendingResult, error) {
	var resp pendingResponse
	params := url.Values{"dni": {employeeID}}
	if err := c.getJSON(ctx, c.actions.GetPending, params, &resp); err != nil {
		return nil, err
	}

	result := &models.PendingResult{
		Pending: resp.Records,
		Recent:  resp.Recent,
	}
	if len(result.Recent) == 0 {
		result.Recent = resp.Latest
	}
	if resp.Employee != nil {
		result.Employee = &models.Employee{ID: employeeID, FullName: strings.TrimSpace(resp.Employee.Nombre)}
	}

	c.logger.Info("Pending records loaded",
		zap.String("employee_id", employeeID),
		zap.Int("pending", len(result.Pending)),
		zap.Int("recent", len(result.Recent)),
	)
	return result, nil
}

// ConfirmBatch marks rows as confirmed. The backend does not guarantee
// idempotency, so callers must not send the same batch twice; each call
// carries a fresh requestId the backend may use to drop duplicates.
func (c *APIClient) ConfirmBatch(ctx context.Context, employeeID string, rows []models.RowRef) (models.ConfirmResult, error) {
	if len(rows) == 0 {
		return models.ConfirmResult{}, ErrEmptyBatch
	}

	requestID := uuid.NewString()
	payload := map[string]any{
		"dni":       employeeID,
		"rows":      rows,
		"requestId": requestID,
	}

	var resp confirmResponse
	if err := c.postJSON(ctx, c.actions.ConfirmRecords, payload, &resp); err != nil {
		return models.ConfirmResult{}, err
	}

	confirmed := len(rows)
	if resp.Confirmed != nil && *resp.Confirmed > 0 {
		confirmed = *resp.Confirmed
	}

	c.logger.Info("Records confirmed",
		zap.String("employee_id", employeeID),
		zap.String("request_id", requestID),
		zap.Int("requested", len(rows)),
		zap.Int("confirmed", confirmed),
	)
	return models.ConfirmResult{Confirmed: confirmed}, nil
}

func (c *APIClient) getJSON(ctx context.Context, action string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("GET", zap.String("action", action))
	return c.do(req, action, out)
}

func (c *APIClient) postJSON(ctx context.Context, action string, payload map[string]any, out any) error {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["action"] = action

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("POST", zap.String("action", action))
	return c.do(req, action, out)
}

// do sends req and decodes the JSON answer into out, classifying failures
// as timeout, connection, backend status or business rejection
func (c *APIClient) do(req *http.Request, action string, out any) error {
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		return c.transportError(req.Context(), action, err, duration)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return c.transportError(req.Context(), action, err, duration)
	}
	if int64(len(body)) > c.maxBody {
		c.logger.Error("Response too large", zap.String("action", action), zap.Int64("limit", c.maxBody))
		return &ConnectionError{Action: action, Err: fmt.Errorf("response exceeds %d bytes", c.maxBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Backend error",
			zap.String("action", action),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return &BackendError{
			Message:    fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, string(body)),
			StatusCode: resp.StatusCode,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Error("Malformed response",
			zap.String("action", action),
			zap.Error(err),
		)
		return &ConnectionError{Action: action, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if env.Error != "" || (env.Success != nil && !*env.Success) {
		msg := env.Error
		if msg == "" {
			msg = "unknown server error"
		}
		c.logger.Warn("Request rejected by backend",
			zap.String("action", action),
			zap.String("error", msg),
		)
		return &BusinessError{Action: action, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			c.logger.Error("Malformed response",
				zap.String("action", action),
				zap.Error(err),
			)
			return &ConnectionError{Action: action, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
	}

	c.logger.Debug("Request completed",
		zap.String("action", action),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return nil
}

func (c *APIClient) transportError(ctx context.Context, action string, err error, duration time.Duration) error {
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		c.logger.Error("Request timed out",
			zap.String("action", action),
			zap.Duration("timeout", c.timeout),
			zap.Duration("duration", duration),
		)
		return &TimeoutError{Action: action, Timeout: c.timeout}
	}

	c.logger.Error("Request failed",
		zap.String("action", action),
		zap.Duration("duration", duration),
		zap.Error(err),
	)
	return &ConnectionError{Action: action, Err: err}
}
