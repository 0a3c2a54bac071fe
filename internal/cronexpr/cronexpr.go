// Package cronexpr parses the standard 5-field cron grammar (minute, hour,
// day-of-month, month, day-of-week) and computes the next matching instant
// strictly after a given time.
package cronexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSchedule is wrapped with details and returned by Parse on any
// malformed or out-of-range field.
var ErrInvalidSchedule = errors.New("invalid cron schedule")

// searchHorizon bounds how far into the future NextAfter will look before
// concluding a schedule can never fire again (e.g. "0 0 31 2 *").
const searchHorizon = 4 * 366 * 24 * time.Hour

// field holds the set of valid values for one cron field plus whether it was
// left unrestricted ("*"), which matters for day-of-month/day-of-week OR logic.
type field struct {
	values     map[int]bool
	restricted bool
}

func (f field) match(v int) bool {
	if !f.restricted {
		return true
	}
	return f.values[v]
}

// Expression is a parsed, immutable 5-field cron schedule.
type Expression struct {
	raw     string
	minute  field
	hour    field
	dom     field
	month   field
	dow     field
}

// String returns the original schedule text.
func (e Expression) String() string { return e.raw }

// Parse parses a 5-field cron expression. Fields are whitespace separated in
// the order minute, hour, day-of-month, month, day-of-week.
func Parse(schedule string) (Expression, error) {
	parts := strings.Fields(schedule)
	if len(parts) != 5 {
		return Expression{}, fmt.Errorf("%w: %q: expected 5 fields, got %d", ErrInvalidSchedule, schedule, len(parts))
	}

	minute, err := parseField(parts[0], 0, 59)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: minute field: %s", ErrInvalidSchedule, schedule, err)
	}
	hour, err := parseField(parts[1], 0, 23)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: hour field: %s", ErrInvalidSchedule, schedule, err)
	}
	dom, err := parseField(parts[2], 1, 31)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: day-of-month field: %s", ErrInvalidSchedule, schedule, err)
	}
	month, err := parseField(parts[3], 1, 12)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: month field: %s", ErrInvalidSchedule, schedule, err)
	}
	dow, err := parseField(parts[4], 0, 6)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %q: day-of-week field: %s", ErrInvalidSchedule, schedule, err)
	}

	return Expression{raw: schedule, minute: minute, hour: hour, dom: dom, month: month, dow: dow}, nil
}

// parseField parses one comma-separated cron field (each item being *, N,
// N-M, */S, or N-M/S) bounded to [lo, hi] inclusive.
func parseField(s string, lo, hi int) (field, error) {
	f := field{values: make(map[int]bool)}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return field{}, fmt.Errorf("empty item")
		}
		if item == "*" {
			continue
		}
		f.restricted = true

		rangePart := item
		step := 1
		if idx := strings.IndexByte(item, '/'); idx >= 0 {
			rangePart = item[:idx]
			stepStr := item[idx+1:]
			n, err := strconv.Atoi(stepStr)
			if err != nil || n <= 0 {
				return field{}, fmt.Errorf("bad step %q", stepStr)
			}
			step = n
		}

		start, end := lo, hi
		if rangePart != "*" {
			if dash := strings.IndexByte(rangePart, '-'); dash >= 0 {
				a, err1 := strconv.Atoi(rangePart[:dash])
				b, err2 := strconv.Atoi(rangePart[dash+1:])
				if err1 != nil || err2 != nil {
					return field{}, fmt.Errorf("bad range %q", rangePart)
				}
				start, end = a, b
			} else {
				n, err := strconv.Atoi(rangePart)
				if err != nil {
					return field{}, fmt.Errorf("bad value %q", rangePart)
				}
				start, end = n, n
			}
		}
		if start < lo || start > hi || end < lo || end > hi || start > end {
			return field{}, fmt.Errorf("value %q out of range [%d,%d]", item, lo, hi)
		}
		for v := start; v <= end; v += step {
			f.values[v] = true
		}
	}
	if !f.restricted {
		// "*" everywhere: leave values empty, match() short-circuits.
	}
	return f, nil
}

// NextAfter returns the smallest UTC instant strictly greater than t whose
// wall-clock fields satisfy the expression, along with true if found within
// the search horizon. Seconds and sub-second components are always zero in
// the result.
func (e Expression) NextAfter(t time.Time) (time.Time, bool) {
	t = t.UTC().Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(searchHorizon)

	domRestricted := e.dom.restricted
	dowRestricted := e.dow.restricted

	for cur := t; cur.Before(limit); {
		if !e.month.match(int(cur.Month())) {
			cur = nextMonthBoundary(cur)
			continue
		}
		if !dayMatches(e, cur, domRestricted, dowRestricted) {
			cur = nextDayBoundary(cur)
			continue
		}
		if !e.hour.match(cur.Hour()) {
			cur = nextHourBoundary(cur)
			continue
		}
		if !e.minute.match(cur.Minute()) {
			cur = cur.Add(time.Minute)
			continue
		}
		return cur, true
	}
	return time.Time{}, false
}

func dayMatches(e Expression, t time.Time, domRestricted, dowRestricted bool) bool {
	domMatch := e.dom.match(t.Day())
	dowMatch := e.dow.match(int(t.Weekday()))
	switch {
	case domRestricted && dowRestricted:
		return domMatch || dowMatch
	case domRestricted:
		return domMatch
	case dowRestricted:
		return dowMatch
	default:
		return true
	}
}

// nextMonthBoundary returns the first instant of the month following t's
// month, used to skip non-matching months quickly.
func nextMonthBoundary(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// nextDayBoundary returns midnight of the day following t, used to skip
// non-matching days quickly.
func nextDayBoundary(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

// nextHourBoundary returns the start of the hour following t, used to skip
// non-matching hours quickly.
func nextHourBoundary(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour()+1, 0, 0, 0, time.UTC)
}
