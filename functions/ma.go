package functions

import (
	"fmt"

	"github.com/zestra/zdmt/series"
)

// MA calculates the simple moving average over the trailing window.
//
// The output has the same length and date alignment as the input. Points
// before the window has filled are null, not dropped. Null inputs inside a
// filled window are excluded from the mean; a window with no available
// values yields a null output point.
func MA(s series.Series, window int) (series.Series, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}

	out := make(series.Series, len(s))
	for i, p := range s {
		out[i] = series.Point{Date: p.Date}
		if i < window-1 {
			continue
		}

		sum := 0.0
		n := 0
		for j := i - window + 1; j <= i; j++ {
			if s[j].Value == nil {
				continue
			}
			sum += *s[j].Value
			n++
		}
		if n == 0 {
			continue
		}
		avg := sum / float64(n)
		out[i].Value = &avg
	}
	return out, nil
}
