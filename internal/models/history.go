package models

import "time"

// HistoryEntry is a locally kept copy of a successful submission.
// It is informational only.
type HistoryEntry struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	ShiftLabel   string    `json:"shiftLabel"`
	TimeIn       string    `json:"timeIn"`
	TimeOut      string    `json:"timeOut"`
	DutyEngineer string    `json:"dutyEngineer"`
	RecordedAt   time.Time `json:"recordedAt"`
}
