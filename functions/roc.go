package functions

import (
	"fmt"

	"github.com/zestra/zdmt/series"
)

// ROC calculates the rate of change in percent versus the value N periods
// back: (v[i] - v[i-n]) / v[i-n] * 100.
//
// The output point is null where i < n, where either operand is null, or
// where the base value is zero. A zero base is a data gap, not an error,
// so a partially defined series stays chartable.
func ROC(s series.Series, periods int) (series.Series, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("periods must be positive, got %d", periods)
	}

	out := make(series.Series, len(s))
	for i, p := range s {
		out[i] = series.Point{Date: p.Date}
		if i < periods || p.Value == nil {
			continue
		}
		base := s[i-periods].Value
		if base == nil || *base == 0 {
			continue
		}
		v := (*p.Value - *base) / *base * 100
		out[i].Value = &v
	}
	return out, nil
}

// Momentum calculates the absolute change versus the value N periods back:
// v[i] - v[i-n]. Null where either operand is null or i < n.
func Momentum(s series.Series, periods int) (series.Series, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("periods must be positive, got %d", periods)
	}

	out := make(series.Series, len(s))
	for i, p := range s {
		out[i] = series.Point{Date: p.Date}
		if i < periods || p.Value == nil {
			continue
		}
		base := s[i-periods].Value
		if base == nil {
			continue
		}
		v := *p.Value - *base
		out[i].Value = &v
	}
	return out, nil
}
