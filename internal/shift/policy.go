package shift

import "strings"

// Labels of the exempt shifts as offered by the backend
const (
	FirstRestDay  = "1st rest day"
	SecondRestDay = "2nd rest day"
	Holiday       = "Holiday"
)

// Group is a set of shift labels sharing the same minimum hours
type Group struct {
	MinimumHours float64
	Labels       []string
}

// DefaultGroups is the minimum-hours table for the scheduled shifts
var DefaultGroups = []Group{
	{MinimumHours: 9, Labels: []string{"06:00-15:00", "07:00-16:00", "09:00-18:00"}},
	{MinimumHours: 7, Labels: []string{"13:00-20:00", "14:00-21:00", "07:00-14:00"}},
	{MinimumHours: 6, Labels: []string{"17:00-23:00", "18:00-00:00", "00:00-06:00"}},
}

// DefaultExempt lists the labels that skip the minimum-hours check.
// The sheet still carries the Spanish names, which are accepted as aliases.
var DefaultExempt = []string{
	FirstRestDay, SecondRestDay, Holiday,
	"1er Día Descanso", "2do Día Descanso", "Feriado",
}

// Policy answers minimum-hours and exemption questions for shift labels.
// It is immutable after construction.
type Policy struct {
	minimum map[string]float64
	exempt  map[string]struct{}
}

// NewPolicy builds a policy from minimum-hours groups and exempt labels.
// Labels are matched after trimming surrounding spaces; exempt labels
// are matched case-insensitively.
func NewPolicy(groups []Group, exempt []string) *Policy {
	p := &Policy{
		minimum: make(map[string]float64),
		exempt:  make(map[string]struct{}, len(exempt)),
	}
	for _, g := range groups {
		for _, label := range g.Labels {
			p.minimum[strings.TrimSpace(label)] = g.MinimumHours
		}
	}
	for _, label := range exempt {
		p.exempt[exemptKey(label)] = struct{}{}
	}
	return p
}

// DefaultPolicy returns the shift table in use by the attendance sheet
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultGroups, DefaultExempt)
}

// MinimumHours returns the hours required by label; unknown labels need 0
func (p *Policy) MinimumHours(label string) float64 {
	return p.minimum[strings.TrimSpace(label)]
}

// IsExempt reports whether label bypasses the minimum-hours check
func (p *Policy) IsExempt(label string) bool {
	_, ok := p.exempt[exemptKey(label)]
	return ok
}

// Overtime returns hours worked beyond the label's minimum. The result
// may be zero or negative; exempt labels count every hour.
func (p *Policy) Overtime(label string, hours float64) float64 {
	if p.IsExempt(label) {
		return hours
	}
	return hours - p.MinimumHours(label)
}

func exemptKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
