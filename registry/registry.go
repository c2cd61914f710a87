// Package registry persists calculation definitions: named formulas over
// indicator series, with a declared output shape.
package registry

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("calculation not found")
	ErrDuplicateSlug = errors.New("calculation slug already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// OutputType is the declared shape of a calculation's result.
type OutputType int

const (
	// OutputSeries produces a dated series for charting.
	OutputSeries OutputType = iota
	// OutputValue produces a single scalar.
	OutputValue
	// OutputIndicator produces a series and registers a companion indicator
	// so the result is addressable by slug like any sourced series.
	OutputIndicator
)

func (t OutputType) String() string {
	switch t {
	case OutputValue:
		return "value"
	case OutputIndicator:
		return "indicator"
	default:
		return "series"
	}
}

// ParseOutputType maps the wire strings "series", "value", "indicator".
func ParseOutputType(s string) (OutputType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "series":
		return OutputSeries, nil
	case "value":
		return OutputValue, nil
	case "indicator":
		return OutputIndicator, nil
	default:
		return 0, errors.New("output_type must be series, value, or indicator")
	}
}

// Calculation is one persisted formula definition. Indicators lists the
// slugs the formula references, in first-appearance order.
type Calculation struct {
	ID         string
	Name       string
	Slug       string
	Formula    string
	Indicators []string
	OutputType OutputType
	CreatedAt  time.Time
}

// Registry is the calculation CRUD boundary the engine writes through.
type Registry interface {
	Create(c *Calculation) error
	Get(id string) (*Calculation, error)
	GetBySlug(slug string) (*Calculation, error)
	List(limit int) ([]Calculation, error)
	Delete(id string) error

	// ListReferencing returns calculations whose formula references the
	// given indicator slug, for delete-time dangling-reference checks.
	ListReferencing(slug string) ([]Calculation, error)

	// UniqueSlug derives a free slug from a name, appending -2, -3, ... on
	// collision.
	UniqueSlug(name string) (string, error)

	Close() error
}

// Slugify lowercases a name and collapses runs of non-alphanumerics into
// single hyphens: "GDP 12M MA" becomes "gdp-12m-ma".
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
