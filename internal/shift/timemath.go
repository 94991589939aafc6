package shift

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" to minutes since midnight
func ParseClock(s string) (int, error) {
	t := strings.TrimSpace(s)
	parts := strings.Split(t, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return h*60 + m, nil
}

// Duration returns the hours worked between timeIn and timeOut.
// A timeOut at or before timeIn is taken as the next day, so equal
// times mean a full 24h shift. ok is false when either side is malformed.
func Duration(timeIn, timeOut string) (hours float64, ok bool) {
	in, err := ParseClock(timeIn)
	if err != nil {
		return 0, false
	}
	out, err := ParseClock(timeOut)
	if err != nil {
		return 0, false
	}
	if out <= in {
		out += minutesPerDay
	}
	return float64(out-in) / 60, true
}
