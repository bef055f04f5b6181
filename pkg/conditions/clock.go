package conditions

import (
	"strings"
	"time"
)

// NoonHour is used whenever a simulated time cannot be parsed.
const NoonHour = 12

const DateLayout = "2006-01-02"

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

// ParseClock parses a simulated time of day. ok is false when s matched no
// known layout, in which case noon is returned.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return NoonHour, 0, false
}

// ParseDate parses a simulated calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseMoment parses "YYYY-MM-DD" optionally followed by a clock time.
// A missing or unparseable clock falls back to noon.
func ParseMoment(s string) (time.Time, bool) {
	date, clock, _ := strings.Cut(strings.TrimSpace(s), " ")
	d, ok := ParseDate(date)
	if !ok {
		return time.Time{}, false
	}
	h, m, _ := ParseClock(clock)
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), true
}

// Hour returns the simulated hour of state, noon when unparseable.
func (s State) Hour() int {
	h, _, _ := ParseClock(s.Time)
	return h
}

// Moment combines the simulated date and time. ok is false when the date is
// unparseable.
func (s State) Moment() (time.Time, bool) {
	d, ok := ParseDate(s.Date)
	if !ok {
		return time.Time{}, false
	}
	h, m, _ := ParseClock(s.Time)
	return d.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), true
}

// Window is a half-open hour range [From, To). From > To wraps midnight.
type Window struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	if w.From <= w.To {
		return hour >= w.From && hour < w.To
	}
	return hour >= w.From || hour < w.To
}
