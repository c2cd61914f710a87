// Package store persists indicators and their data points. It is the series
// side of the system: the calculation registry holds formulas, this holds
// the data they reference.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/zestra/zdmt/series"
)

var (
	ErrNotFound      = errors.New("indicator not found")
	ErrDuplicateSlug = errors.New("indicator slug already exists")
)

// SourceCalculation marks indicators whose data is computed from a formula
// rather than fetched from a provider.
const SourceCalculation = "calculation"

// Indicator is a named, sourced economic time series. SourceConfig is an
// opaque JSON blob owned by the source subsystem, except for calculation
// sources where it carries a CalculationSource.
type Indicator struct {
	ID           int64
	Name         string
	Slug         string
	Description  string
	SourceType   string
	SourceConfig string
	IsActive     bool
	CreatedAt    time.Time
}

// CalculationSource is the source_config payload linking a companion
// indicator back to its calculation.
type CalculationSource struct {
	CalculationID string `json:"calculation_id"`
	Formula       string `json:"formula"`
}

// CalculationLink decodes the calculation source config, or fails if this
// indicator is not calculation-backed.
func (ind *Indicator) CalculationLink() (CalculationSource, error) {
	var src CalculationSource
	if ind.SourceType != SourceCalculation {
		return src, errors.New("indicator is not calculation-backed")
	}
	if err := json.Unmarshal([]byte(ind.SourceConfig), &src); err != nil {
		return src, err
	}
	return src, nil
}

// EncodeCalculationSource renders the source_config blob for a companion
// indicator.
func EncodeCalculationSource(src CalculationSource) (string, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Store is the indicator and data-point boundary the calculation engine
// reads through. Writes happen on the admin path only.
type Store interface {
	CreateIndicator(ind *Indicator) (int64, error)
	FindIndicatorBySlug(slug string) (*Indicator, error)
	ListIndicators(limit int) ([]Indicator, error)
	DeleteIndicator(id int64) error

	GetSeries(indicatorID int64) (series.Series, error)
	UpsertPoints(indicatorID int64, pts series.Series) error

	Close() error
}
