// Package charts prepares series for rendering: named timeframe filtering
// and the summary statistics shown alongside a chart.
package charts

import (
	"fmt"
	"strings"
	"time"

	"github.com/zestra/zdmt/series"
)

// Ranges lists the supported timeframe names, shortest first.
var Ranges = []string{"3m", "6m", "1y", "2y", "5y", "10y", "ytd", "all"}

// Filter trims a series to a timeframe ending at now. rangeName is either a
// named range from Ranges or a custom window written "from:to". "all" and the
// empty string return the series unchanged.
func Filter(s series.Series, rangeName string, now time.Time) (series.Series, error) {
	switch rangeName {
	case "", "all":
		return s, nil
	case "ytd":
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return s.Since(start), nil
	case "3m":
		return s.Since(now.AddDate(0, -3, 0)), nil
	case "6m":
		return s.Since(now.AddDate(0, -6, 0)), nil
	case "1y":
		return s.Since(now.AddDate(-1, 0, 0)), nil
	case "2y":
		return s.Since(now.AddDate(-2, 0, 0)), nil
	case "5y":
		return s.Since(now.AddDate(-5, 0, 0)), nil
	case "10y":
		return s.Since(now.AddDate(-10, 0, 0)), nil
	default:
		if strings.Contains(rangeName, ":") {
			return customWindow(s, rangeName)
		}
		return nil, fmt.Errorf("unknown range %q", rangeName)
	}
}

// customWindow applies a "from:to" expression with inclusive calendar-date
// bounds. Either side may be empty for an open end.
func customWindow(s series.Series, expr string) (series.Series, error) {
	fromStr, toStr, _ := strings.Cut(expr, ":")

	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = time.Parse(series.DateFormat, fromStr); err != nil {
			return nil, fmt.Errorf("bad range start %q: want %s", fromStr, series.DateFormat)
		}
	}
	if toStr == "" {
		return s.Since(from), nil
	}
	if to, err = time.Parse(series.DateFormat, toStr); err != nil {
		return nil, fmt.Errorf("bad range end %q: want %s", toStr, series.DateFormat)
	}
	if fromStr != "" && to.Before(from) {
		return nil, fmt.Errorf("range start %s is after end %s", fromStr, toStr)
	}
	return s.Between(from, to.AddDate(0, 0, 1)), nil
}

// Stats summarizes the visible window of a chart. Nil fields mean the
// window had no available values.
type Stats struct {
	Count     int      `json:"count"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Avg       *float64 `json:"avg"`
	Latest    *float64 `json:"latest"`
	Change    *float64 `json:"change"`
	ChangePct *float64 `json:"change_pct"`
}

// Compute derives stats over the available values. Change compares the
// first and last non-null points; the percent form is null when the first
// value is zero.
func Compute(s series.Series) Stats {
	st := Stats{Count: len(s)}

	var first *float64
	sum := 0.0
	n := 0
	for _, p := range s {
		if p.Value == nil {
			continue
		}
		v := *p.Value
		if first == nil {
			first = &v
		}
		if st.Min == nil || v < *st.Min {
			st.Min = series.Float(v)
		}
		if st.Max == nil || v > *st.Max {
			st.Max = series.Float(v)
		}
		sum += v
		n++
	}
	if n == 0 {
		return st
	}

	st.Avg = series.Float(sum / float64(n))
	st.Latest = s.LastValue()

	if first != nil && st.Latest != nil {
		st.Change = series.Float(*st.Latest - *first)
		if *first != 0 {
			st.ChangePct = series.Float((*st.Latest - *first) / *first * 100)
		}
	}
	return st
}
