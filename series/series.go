// Package series defines the ordered time-series type shared by the function
// library, the evaluator, and the chart layer.
package series

import (
	"sort"
	"time"
)

// DateFormat is the calendar-date layout used everywhere a point's date is
// rendered or parsed (CSV, JSON, CLI output).
const DateFormat = "2006-01-02"

// Point is a single observation. A nil Value is a data gap, which is distinct
// from zero: gaps are carried through calculations and rendered as missing by
// charts.
type Point struct {
	Date  time.Time
	Value *float64
}

// Series is an ordered list of points, ascending by date, at most one point
// per date.
type Series []Point

// Float is a convenience for building nullable values in literals and tests.
func Float(v float64) *float64 {
	return &v
}

// New builds a series from (date, value) pairs and sorts it by date.
func New(points ...Point) Series {
	s := Series(points)
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s
}

// Between returns the points with start <= date < end, preserving order.
func (s Series) Between(start, end time.Time) Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Date.Before(start) || !p.Date.Before(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Since returns the points with date >= start.
func (s Series) Since(start time.Time) Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Date.Before(start) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Last returns the most recent point, or false on an empty series.
func (s Series) Last() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// LastValue returns the most recent non-null value, or nil if there is none.
func (s Series) LastValue() *float64 {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Value != nil {
			return s[i].Value
		}
	}
	return nil
}

// NonNull counts the points that carry a value.
func (s Series) NonNull() int {
	n := 0
	for _, p := range s {
		if p.Value != nil {
			n++
		}
	}
	return n
}
