// Package period turns period tokens into concrete date windows.
//
// Every window is inclusive on both ends and runs from 00:00:00.000 of its
// first day to 23:59:59.999 of its last day, in the location of "now".
package period

import (
	"fmt"
	"time"
)

type Token string

const (
	Weekly  Token = "weekly"
	Monthly Token = "monthly"
	Yearly  Token = "yearly"
	YTD     Token = "ytd"
)

// Window is an inclusive [Start, End] date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Days returns the start of every calendar day in the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(w.Start); !d.After(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Resolve maps token and now to a window. Unknown tokens resolve as Monthly.
func Resolve(token Token, now time.Time) Window {
	switch token {
	case Weekly:
		// (weekday + 6) % 7 days back to Monday; Sunday goes back 6.
		daysToMonday := (int(now.Weekday()) + 6) % 7
		start := StartOfDay(now.AddDate(0, 0, -daysToMonday))
		return Window{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
	case Yearly:
		return Window{
			Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
			End:   EndOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())),
		}
	case YTD:
		return Window{
			Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
			End:   EndOfDay(now),
		}
	default:
		return Month(now.Year(), now.Month(), now.Location())
	}
}

// Month is the full calendar month in loc.
func Month(year int, month time.Month, loc *time.Location) Window {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// day 0 of the next month is the last day of this one
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
	return Window{Start: first, End: EndOfDay(last)}
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Parse validates s against the allowed tokens. An empty allowed list accepts
// every known token.
func Parse(s string, allowed ...Token) (Token, bool) {
	if len(allowed) == 0 {
		allowed = []Token{Weekly, Monthly, Yearly, YTD}
	}
	for _, t := range allowed {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ParseDate accepts YYYY-MM-DD, read as midnight in loc, or an RFC 3339
// timestamp. dateOnly reports which form s used.
func ParseDate(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err = time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), false, nil
	}
	return time.Time{}, false, fmt.Errorf("date %q is neither YYYY-MM-DD nor RFC 3339", s)
}
