package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sheet cells come back either as JSON numbers or as their display strings,
// so the numeric and boolean record fields accept both.

// Decimal is an hour amount; empty or unparseable cells decode to 0
type Decimal float64

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*d = 0
			return nil
		}
		*d = Decimal(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*d = 0
		return nil
	}
	*d = Decimal(v)
	return nil
}

// RowRef identifies a sheet row for later confirmation
type RowRef int

func (r *RowRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid row reference %q", s)
		}
		*r = RowRef(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid row reference %s", data)
	}
	*r = RowRef(n)
	return nil
}

// Flag is a boolean cell; "Sí"/"Si"/"Yes"/"true" count as set
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("true")):
		*f = true
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "sí", "si", "yes", "true", "x":
			*f = true
		default:
			*f = false
		}
	default:
		*f = false
	}
	return nil
}
