package service

import (
	"errors"

	"Mansoor88-6/overtime-agent/internal/validation"
)

// Input errors, reported before any request is made
var (
	ErrEmployeeNotRegistered = errors.New("employee not registered")
	ErrNoTimes               = errors.New("enter at least the time in or the time out")
	ErrShiftRequired         = errors.New("select a shift")
	ErrEngineerRequired      = errors.New("select the duty engineer")
	ErrNotesTooLong          = errors.New("notes cannot exceed 130 characters")
	ErrInvalidDate           = errors.New("invalid date, use YYYY-MM-DD")
	ErrDateOutOfRange        = errors.New("date must be within the last 11 days")
)

var inputErrors = []error{
	ErrNoTimes,
	ErrShiftRequired,
	ErrEngineerRequired,
	ErrNotesTooLong,
	ErrInvalidDate,
	ErrDateOutOfRange,
	validation.ErrIncompleteFields,
	validation.ErrHoursNotComputable,
	validation.ErrIncompleteWorkday,
	validation.ErrNoOvertime,
}

// IsInputError reports whether err is a form or overtime rule the user has to fix
func IsInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
