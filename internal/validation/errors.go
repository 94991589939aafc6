package validation

import "errors"

// Rejection reasons, in the order they are checked
var (
	ErrIncompleteFields   = errors.New("incomplete fields")
	ErrHoursNotComputable = errors.New("could not compute hours")
	ErrIncompleteWorkday  = errors.New("incomplete workday")
	ErrNoOvertime         = errors.New("no overtime — did not work beyond the required shift hours")
)
