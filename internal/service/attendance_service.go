package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/employeeid"
	"Mansoor88-6/overtime-agent/internal/history"
	"Mansoor88-6/overtime-agent/internal/models"
	"Mansoor88-6/overtime-agent/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxNotesLength is the longest accepted notes text, in characters
	MaxNotesLength = 130
	// MaxDaysBack is how far in the past a work date may be
	MaxDaysBack = 11

	dateLayout = "2006-01-02"
)

// RemoteClient is the part of the backend API the form needs
type RemoteClient interface {
	FetchEmployees(ctx context.Context, force bool) (map[string]models.Employee, error)
	LookupEmployee(id string) (models.Employee, bool)
	FetchShiftLabels(ctx context.Context) ([]string, error)
	FetchEngineers(ctx context.Context) ([]string, error)
	Submit(ctx context.Context, s models.AttendanceSubmission) models.SubmitResult
}

// HistoryStore keeps the latest local submissions
type HistoryStore interface {
	Add(ctx context.Context, entry models.HistoryEntry) (models.HistoryEntry, error)
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Get(ctx context.Context, id string) (models.HistoryEntry, error)
	Clear(ctx context.Context) error
}

// FormInput is the attendance form as entered by the user
type FormInput struct {
	EmployeeID   string `json:"employeeId"`
	Date         string `json:"date"` // YYYY-MM-DD, empty means today
	TimeIn       string `json:"timeIn"`
	TimeOut      string `json:"timeOut"`
	ShiftLabel   string `json:"shiftLabel"`
	DutyEngineer string `json:"dutyEngineer"`
	Notes        string `json:"notes"`
}

// ReferenceData are the lists the form offers
type ReferenceData struct {
	Employees   int      `json:"employees"`
	ShiftLabels []string `json:"shiftLabels"`
	Engineers   []string `json:"engineers"`
}

// AttendanceService implements the attendance form: employee lookup,
// field checks, the overtime gate, submission and the local history
type AttendanceService struct {
	client    RemoteClient
	validator *validation.Validator
	history   HistoryStore
	now       func() time.Time
	logger    *zap.Logger
}

// NewAttendanceService creates the service. history may be nil.
func NewAttendanceService(
	apiClient RemoteClient,
	validator *validation.Validator,
	history HistoryStore,
	logger *zap.Logger,
) *AttendanceService {
	if validator == nil {
		validator = validation.NewValidator(nil)
	}
	return &AttendanceService{
		client:    apiClient,
		validator: validator,
		history:   history,
		now:       time.Now,
		logger:    logger,
	}
}

// LoadReferenceData loads the employee directory, shift labels and duty
// engineers in parallel. The directory comes from the cache when fresh,
// unless refresh is set.
func (s *AttendanceService) LoadReferenceData(ctx context.Context, refresh bool) (*ReferenceData, error) {
	var (
		employees map[string]models.Employee
		data      ReferenceData
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if employees, err = s.client.FetchEmployees(ctx, refresh); err != nil {
			return fmt.Errorf("failed to load employees: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if data.ShiftLabels, err = s.client.FetchShiftLabels(ctx); err != nil {
			return fmt.Errorf("failed to load shifts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if data.Engineers, err = s.client.FetchEngineers(ctx); err != nil {
			return fmt.Errorf("failed to load engineers: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.Employees = len(employees)
	s.logger.Info("Reference data loaded",
		zap.Int("employees", data.Employees),
		zap.Int("shifts", len(data.ShiftLabels)),
		zap.Int("engineers", len(data.Engineers)),
	)
	return &data, nil
}

// RefreshEmployees reloads the employee directory regardless of its age and
// returns the number of employees
func (s *AttendanceService) RefreshEmployees(ctx context.Context) (int, error) {
	employees, err := s.client.FetchEmployees(ctx, true)
	if err != nil {
		return 0, err
	}
	return len(employees), nil
}

// LookupEmployee resolves a typed ID to a registered employee. A stale
// directory is refreshed first; if that fails the stale copy still answers.
func (s *AttendanceService) LookupEmployee(ctx context.Context, rawID string) (models.Employee, error) {
	id, err := employeeid.Normalize(rawID)
	if err != nil {
		return models.Employee{}, err
	}

	employees, err := s.client.FetchEmployees(ctx, false)
	if err != nil {
		if e, ok := s.client.LookupEmployee(id); ok {
			s.logger.Warn("Using stale employee directory", zap.Error(err))
			return e, nil
		}
		return models.Employee{}, err
	}

	e, ok := employees[id]
	if !ok {
		return models.Employee{}, ErrEmployeeNotRegistered
	}
	return e, nil
}

// Validate runs the overtime check on its own, for live feedback while typing
func (s *AttendanceService) Validate(shiftLabel, timeIn, timeOut string) validation.Result {
	return s.validator.Validate(shiftLabel, timeIn, timeOut)
}

// Submit checks the form and sends it. Input and validation failures never
// reach the network; every outcome comes back as a SubmitResult.
func (s *AttendanceService) Submit(ctx context.Context, in FormInput) models.SubmitResult {
	employee, err := s.LookupEmployee(ctx, in.EmployeeID)
	if err != nil {
		return failed(err)
	}

	sub := models.AttendanceSubmission{
		Date:         strings.TrimSpace(in.Date),
		EmployeeID:   employee.ID,
		EmployeeName: employee.FullName,
		TimeIn:       strings.TrimSpace(in.TimeIn),
		TimeOut:      strings.TrimSpace(in.TimeOut),
		ShiftLabel:   strings.TrimSpace(in.ShiftLabel),
		DutyEngineer: strings.TrimSpace(in.DutyEngineer),
		Notes:        strings.TrimSpace(in.Notes),
	}

	if err := s.checkFields(&sub); err != nil {
		return failed(err)
	}

	result := s.validator.Validate(sub.ShiftLabel, sub.TimeIn, sub.TimeOut)
	if !result.Valid {
		s.logger.Debug("Submission rejected locally",
			zap.String("employee_id", sub.EmployeeID),
			zap.String("reason", result.Reason),
		)
		return failed(result.Err())
	}

	res := s.client.Submit(ctx, sub)
	if !res.Success {
		s.logger.Warn("Submission failed",
			zap.String("employee_id", sub.EmployeeID),
			zap.String("error", res.ErrorText()),
		)
		return res
	}

	if s.history != nil {
		_, err := s.history.Add(ctx, models.HistoryEntry{
			Date:         sub.Date,
			EmployeeID:   sub.EmployeeID,
			EmployeeName: sub.EmployeeName,
			ShiftLabel:   sub.ShiftLabel,
			TimeIn:       sub.TimeIn,
			TimeOut:      sub.TimeOut,
			DutyEngineer: sub.DutyEngineer,
		})
		if err != nil {
			// the record is already on the server
			s.logger.Warn("Failed to save history entry", zap.Error(err))
		}
	}

	s.logger.Info("Overtime submitted",
		zap.String("employee_id", sub.EmployeeID),
		zap.String("date", sub.Date),
		zap.Float64("overtime_hours", result.OvertimeHours),
	)
	return res
}

// History returns the latest local submissions, newest first
func (s *AttendanceService) History(ctx context.Context) ([]models.HistoryEntry, error) {
	if s.history == nil {
		return []models.HistoryEntry{}, nil
	}
	return s.history.List(ctx)
}

// HistoryEntry returns one local submission
func (s *AttendanceService) HistoryEntry(ctx context.Context, id string) (models.HistoryEntry, error) {
	if s.history == nil {
		return models.HistoryEntry{}, history.ErrNotFound
	}
	return s.history.Get(ctx, id)
}

// ClearHistory forgets every local submission
func (s *AttendanceService) ClearHistory(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	if err := s.history.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("Submission history cleared")
	return nil
}

// checkFields applies the form rules in display order and fills in the
// default date
func (s *AttendanceService) checkFields(sub *models.AttendanceSubmission) error {
	if sub.TimeIn == "" && sub.TimeOut == "" {
		return ErrNoTimes
	}
	if sub.ShiftLabel == "" {
		return ErrShiftRequired
	}
	if sub.DutyEngineer == "" {
		return ErrEngineerRequired
	}
	if utf8.RuneCountInString(sub.Notes) > MaxNotesLength {
		return ErrNotesTooLong
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if sub.Date == "" {
		sub.Date = today.Format(dateLayout)
		return nil
	}
	d, err := time.ParseInLocation(dateLayout, sub.Date, now.Location())
	if err != nil {
		return ErrInvalidDate
	}
	if d.Before(today.AddDate(0, 0, -MaxDaysBack)) || d.After(today) {
		return ErrDateOutOfRange
	}
	return nil
}

func failed(err error) models.SubmitResult {
	msg := client.UserMessage(err)
	return models.SubmitResult{
		Success: false,
		Message: msg,
		Errors:  []string{msg},
		Err:     err,
	}
}
