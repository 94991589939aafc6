// Package employeeid handles the 13-digit national ID used as employee key.
// The canonical form groups the digits as XXXX-XXXX-XXXXX.
package employeeid

import (
	"errors"
	"strings"
)

// Digits is the number of digits in a complete ID
const Digits = 13

// ErrIncomplete is returned for IDs that do not carry exactly 13 digits
var ErrIncomplete = errors.New("enter a complete valid id")

// digitsOf strips everything but 0-9, keeping at most 13 digits
func digitsOf(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == Digits {
				break
			}
		}
	}
	return b.String()
}

// Normalize returns the canonical XXXX-XXXX-XXXXX form of raw.
// Separators and spaces in raw are ignored; any other character makes the ID invalid.
func Normalize(raw string) (string, error) {
	var count int
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			count++
		case r == '-' || r == ' ' || r == '.':
		default:
			return "", ErrIncomplete
		}
	}
	if count != Digits {
		return "", ErrIncomplete
	}
	d := digitsOf(raw)
	return d[:4] + "-" + d[4:8] + "-" + d[8:], nil
}

// IsComplete reports whether raw normalizes to a full ID
func IsComplete(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// FormatPartial formats input as it is typed: 0801 -> 0801,
// 080119 -> 0801-19, 0801199012 -> 0801-1990-12
func FormatPartial(raw string) string {
	d := digitsOf(raw)
	switch {
	case len(d) > 8:
		return d[:4] + "-" + d[4:8] + "-" + d[8:]
	case len(d) > 4:
		return d[:4] + "-" + d[4:]
	default:
		return d
	}
}
