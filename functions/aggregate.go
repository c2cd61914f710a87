package functions

import "github.com/zestra/zdmt/series"

// Sum returns the sum of available values, or nil when the series has none.
// An all-null series is "no data", never zero.
func Sum(s series.Series) *float64 {
	sum := 0.0
	n := 0
	for _, p := range s {
		if p.Value == nil {
			continue
		}
		sum += *p.Value
		n++
	}
	if n == 0 {
		return nil
	}
	return &sum
}

// Avg returns the arithmetic mean of available values, or nil when the
// series has none.
func Avg(s series.Series) *float64 {
	sum := 0.0
	n := 0
	for _, p := range s {
		if p.Value == nil {
			continue
		}
		sum += *p.Value
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// Min returns the smallest available value. A non-nil floor clamps the
// result so it never falls below it.
func Min(s series.Series, floor *float64) *float64 {
	var min *float64
	for _, p := range s {
		if p.Value == nil {
			continue
		}
		if min == nil || *p.Value < *min {
			v := *p.Value
			min = &v
		}
	}
	if min == nil {
		return nil
	}
	if floor != nil && *min < *floor {
		v := *floor
		return &v
	}
	return min
}

// Max returns the largest available value. A non-nil ceiling clamps the
// result so it never exceeds it.
func Max(s series.Series, ceiling *float64) *float64 {
	var max *float64
	for _, p := range s {
		if p.Value == nil {
			continue
		}
		if max == nil || *p.Value > *max {
			v := *p.Value
			max = &v
		}
	}
	if max == nil {
		return nil
	}
	if ceiling != nil && *max > *ceiling {
		v := *ceiling
		return &v
	}
	return max
}
