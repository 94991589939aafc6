package models

import "strings"

// PendingRecord is a processed submission as returned by the backend.
// JSON names follow the sheet columns.
type PendingRecord struct {
	RowRef       RowRef  `json:"fila"`
	Date         string  `json:"fecha"`
	ShiftLabel   string  `json:"turno"`
	TimeIn       string  `json:"horaEntrada"`
	TimeOut      string  `json:"horaSalida"`
	TotalHours   Decimal `json:"totalHoras"`
	Night25      Decimal `json:"noct25"`
	Day25        Decimal `json:"diur25"`
	Night50      Decimal `json:"noct50"`
	Extension75  Decimal `json:"prolong75"`
	Holiday100   Decimal `json:"feriado100"`
	DutyEngineer string  `json:"ingeniero"`
	Notes        string  `json:"observaciones"`
	Confirmed    Flag    `json:"confirmado"`
	Status       string  `json:"estado"`
}

// StatusText is the label shown for the record in read-only listings
func (r PendingRecord) StatusText() string {
	switch {
	case bool(r.Confirmed):
		return "Confirmed"
	case strings.EqualFold(strings.TrimSpace(r.Status), "aprobado"),
		strings.EqualFold(strings.TrimSpace(r.Status), "approved"):
		return "Approved"
	case r.Status == "":
		return "Pending"
	default:
		return r.Status
	}
}

// PendingResult is the backend answer to a pending-records lookup
type PendingResult struct {
	Employee *Employee       `json:"employee,omitempty"`
	Pending  []PendingRecord `json:"pending"`
	Recent   []PendingRecord `json:"recent"`
}

// HasPending reports whether any record awaits confirmation
func (r *PendingResult) HasPending() bool {
	return r != nil && len(r.Pending) > 0
}

// TotalHours sums TotalHours over records
func TotalHours(records []PendingRecord) float64 {
	var total float64
	for _, r := range records {
		total += float64(r.TotalHours)
	}
	return total
}
