package functions

import (
	"fmt"

	"github.com/zestra/zdmt/series"
)

// RSI calculates the relative strength index with Wilder smoothing.
//
// Changes are taken between consecutive available values, skipping gaps.
// The initial averages are simple means of the first `periods` changes;
// afterwards avg = (avg*(periods-1) + change) / periods. Output points are
// null until `periods` changes have accumulated, and at every gap in the
// input. When the average loss is zero, RSI is 100.
func RSI(s series.Series, periods int) (series.Series, error) {
	if periods <= 0 {
		return nil, fmt.Errorf("periods must be positive, got %d", periods)
	}

	out := make(series.Series, len(s))
	var (
		prev     *float64
		avgGain  float64
		avgLoss  float64
		warmGain float64
		warmLoss float64
		count    int
	)

	for i, p := range s {
		out[i] = series.Point{Date: p.Date}
		if p.Value == nil {
			continue
		}
		if prev == nil {
			prev = p.Value
			continue
		}

		change := *p.Value - *prev
		prev = p.Value

		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		count++
		switch {
		case count < periods:
			warmGain += gain
			warmLoss += loss
			continue
		case count == periods:
			avgGain = (warmGain + gain) / float64(periods)
			avgLoss = (warmLoss + loss) / float64(periods)
		default:
			avgGain = (avgGain*float64(periods-1) + gain) / float64(periods)
			avgLoss = (avgLoss*float64(periods-1) + loss) / float64(periods)
		}

		var rsi float64
		if avgLoss == 0 {
			rsi = 100
		} else {
			rs := avgGain / avgLoss
			rsi = 100 - 100/(1+rs)
		}
		out[i].Value = &rsi
	}
	return out, nil
}
