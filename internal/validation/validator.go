package validation

import (
	"strings"

	"Mansoor88-6/overtime-agent/internal/shift"
)

// Result classifies one shift/time-range combination
type Result struct {
	Valid         bool    `json:"valid"`
	Reason        string  `json:"reason,omitempty"`
	OvertimeHours float64 `json:"overtimeHours,omitempty"`
	TotalHours    float64 `json:"totalHours,omitempty"`

	err error
}

// Err returns the rejection as a comparable error, nil when valid
func (r Result) Err() error {
	return r.err
}

func reject(err error, total float64) Result {
	return Result{Reason: err.Error(), TotalHours: total, err: err}
}

// Validate checks that the worked range meets the shift's minimum hours and
// produces overtime. The same inputs always give the same Result, so it can
// run on every field change and again as the pre-submit gate.
func Validate(policy *shift.Policy, shiftLabel, timeIn, timeOut string) Result {
	if strings.TrimSpace(shiftLabel) == "" || strings.TrimSpace(timeIn) == "" || strings.TrimSpace(timeOut) == "" {
		return reject(ErrIncompleteFields, 0)
	}

	total, ok := shift.Duration(timeIn, timeOut)
	if !ok {
		return reject(ErrHoursNotComputable, 0)
	}

	// Rest days and holidays are paid in full whatever the duration
	if policy.IsExempt(shiftLabel) {
		return Result{Valid: true, OvertimeHours: total, TotalHours: total}
	}

	minimum := policy.MinimumHours(shiftLabel)
	if total < minimum {
		return reject(ErrIncompleteWorkday, total)
	}

	overtime := policy.Overtime(shiftLabel, total)
	if overtime <= 0 {
		return reject(ErrNoOvertime, total)
	}

	return Result{Valid: true, OvertimeHours: overtime, TotalHours: total}
}

// Validator binds Validate to a policy
type Validator struct {
	policy *shift.Policy
}

// NewValidator creates a validator; a nil policy means shift.DefaultPolicy
func NewValidator(policy *shift.Policy) *Validator {
	if policy == nil {
		policy = shift.DefaultPolicy()
	}
	return &Validator{policy: policy}
}

func (v *Validator) Validate(shiftLabel, timeIn, timeOut string) Result {
	return Validate(v.policy, shiftLabel, timeIn, timeOut)
}
