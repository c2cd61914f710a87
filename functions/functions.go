// Package functions provides the numeric functions available to formulas:
// trailing aggregates over a whole series and rolling transforms that keep
// the input's date alignment.
package functions

import (
	"sort"
	"strings"
)

// Kind describes what a function evaluates to.
type Kind int

const (
	KindScalar Kind = iota
	KindSeries
)

func (k Kind) String() string {
	if k == KindSeries {
		return "series"
	}
	return "value"
}

// Spec is the catalogue entry for one function. MinArgs/MaxArgs count all
// arguments including the series; arity is enforced at parse time.
type Spec struct {
	Name        string
	Category    string
	Syntax      string
	Description string
	Example     string
	MinArgs     int
	MaxArgs     int
	Returns     Kind
}

const (
	CategoryGrowth     = "growth"
	CategoryTrend      = "trend"
	CategoryMomentum   = "momentum"
	CategoryStatistics = "statistics"
)

var specs = map[string]Spec{
	"SUM": {
		Name:        "SUM",
		Category:    CategoryStatistics,
		Syntax:      "SUM(series)",
		Description: "Sum of all available values. Gaps are excluded.",
		Example:     "SUM(GDP_US)",
		MinArgs:     1,
		MaxArgs:     1,
		Returns:     KindScalar,
	},
	"AVG": {
		Name:        "AVG",
		Category:    CategoryStatistics,
		Syntax:      "AVG(series)",
		Description: "Arithmetic mean of all available values. Gaps are excluded.",
		Example:     "AVG(UNEMPLOYMENT_US)",
		MinArgs:     1,
		MaxArgs:     1,
		Returns:     KindScalar,
	},
	"MIN": {
		Name:        "MIN",
		Category:    CategoryStatistics,
		Syntax:      "MIN(series[, floor])",
		Description: "Smallest available value, clamped to the optional floor.",
		Example:     "MIN(CPI_US, 0)",
		MinArgs:     1,
		MaxArgs:     2,
		Returns:     KindScalar,
	},
	"MAX": {
		Name:        "MAX",
		Category:    CategoryStatistics,
		Syntax:      "MAX(series[, ceiling])",
		Description: "Largest available value, clamped to the optional ceiling.",
		Example:     "MAX(CPI_US, 100)",
		MinArgs:     1,
		MaxArgs:     2,
		Returns:     KindScalar,
	},
	"MA": {
		Name:        "MA",
		Category:    CategoryTrend,
		Syntax:      "MA(series, window)",
		Description: "Simple moving average over the trailing window. Points before the window has filled are null.",
		Example:     "MA(GDP_US, 12)",
		MinArgs:     2,
		MaxArgs:     2,
		Returns:     KindSeries,
	},
	"ROC": {
		Name:        "ROC",
		Category:    CategoryGrowth,
		Syntax:      "ROC(series, periods)",
		Description: "Rate of change in percent versus the value N periods back.",
		Example:     "ROC(GDP_US, 4)",
		MinArgs:     2,
		MaxArgs:     2,
		Returns:     KindSeries,
	},
	"MOMENTUM": {
		Name:        "MOMENTUM",
		Category:    CategoryMomentum,
		Syntax:      "MOMENTUM(series, periods)",
		Description: "Absolute change versus the value N periods back.",
		Example:     "MOMENTUM(PAYROLLS_US, 3)",
		MinArgs:     2,
		MaxArgs:     2,
		Returns:     KindSeries,
	},
	"RSI": {
		Name:        "RSI",
		Category:    CategoryMomentum,
		Syntax:      "RSI(series, periods)",
		Description: "Relative strength index with Wilder smoothing. The first N points are null.",
		Example:     "RSI(SP500, 14)",
		MinArgs:     2,
		MaxArgs:     2,
		Returns:     KindSeries,
	},
}

// Lookup finds a function spec by name, case-insensitively.
func Lookup(name string) (Spec, bool) {
	s, ok := specs[strings.ToUpper(name)]
	return s, ok
}

// Catalogue returns all specs sorted by category then name, for the admin
// reference panel.
func Catalogue() []Spec {
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}
