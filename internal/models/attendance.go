package models

import "time"

// Employee is an entry of the employee directory, keyed by its formatted ID
type Employee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// AttendanceSubmission is one overtime request as entered on the form
type AttendanceSubmission struct {
	Date         string `json:"date"` // YYYY-MM-DD
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	TimeIn       string `json:"timeIn"`  // HH:MM
	TimeOut      string `json:"timeOut"` // HH:MM
	ShiftLabel   string `json:"shiftLabel"`
	DutyEngineer string `json:"dutyEngineer"`
	Notes        string `json:"notes"`
}

// Row returns the ordered cell list the backend appends to the sheet.
// Missing times are sent as "-".
func (s AttendanceSubmission) Row(at time.Time) []string {
	return []string{
		at.UTC().Format(time.RFC3339),
		s.Date,
		s.EmployeeID,
		s.EmployeeName,
		orDash(s.TimeIn),
		orDash(s.TimeOut),
		s.ShiftLabel,
		s.DutyEngineer,
		s.Notes,
	}
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// SubmitResult is the normalized outcome of a submission; callers branch on
// Success and never need to inspect a transport error. Err keeps the cause
// of a failure for callers that map it, such as the HTTP binding.
type SubmitResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Err     error    `json:"-"`
}

// ErrorText joins Errors, falling back to Message
func (r SubmitResult) ErrorText() string {
	if len(r.Errors) == 0 {
		if r.Message == "" {
			return "unknown error"
		}
		return r.Message
	}
	out := r.Errors[0]
	for _, e := range r.Errors[1:] {
		out += ", " + e
	}
	return out
}

// ConfirmResult reports how many rows the backend marked as confirmed
type ConfirmResult struct {
	Confirmed int `json:"confirmed"`
}
