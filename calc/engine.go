// Package calc ties the series store, the calculation registry, the parser,
// and the evaluator into the engine the admin surface and the chart layer
// call.
package calc

import (
	"fmt"
	"strings"

	"github.com/zestra/zdmt/eval"
	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/functions"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/series"
	"github.com/zestra/zdmt/store"
)

// Engine evaluates formulas against stored indicator data and manages the
// calculation lifecycle. It is safe for concurrent readers; writes happen on
// the admin path only and are serialized by SQLite's slug constraints.
type Engine struct {
	store    store.Store
	registry registry.Registry
	maxDepth int
}

func NewEngine(st store.Store, reg registry.Registry) *Engine {
	return &Engine{
		store:    st,
		registry: reg,
		maxDepth: eval.MaxDepth,
	}
}

// WithMaxDepth overrides the nested-calculation recursion limit.
func (e *Engine) WithMaxDepth(n int) *Engine {
	if n > 0 {
		e.maxDepth = n
	}
	return e
}

// CreateCalculation validates and persists a new calculation.
//
// The formula is parsed first, with indicator references checked against the
// store, so nothing is persisted on a bad formula. The declared output type
// must match the formula's result shape. With OutputIndicator a companion
// indicator is registered under the calculation's slug, making the result
// addressable like any sourced series.
//
// indicatorSlugs is the caller's declared reference list from the admin
// form; each declared slug must exist, but the stored list is always derived
// from the parsed tree.
func (e *Engine) CreateCalculation(name, formulaStr string, indicatorSlugs []string, outputType registry.OutputType) (*registry.Calculation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", registry.ErrInvalidInput)
	}

	for _, s := range indicatorSlugs {
		if slug := formula.ToSlug(s); !e.hasIndicator(slug) {
			return nil, fmt.Errorf("%w: %s", formula.ErrUnknownIdentifier, s)
		}
	}

	node, err := formula.Parse(formulaStr, e.hasIndicator)
	if err != nil {
		return nil, err
	}

	if err := checkOutputType(node, outputType); err != nil {
		return nil, err
	}

	slug, err := e.registry.UniqueSlug(name)
	if err != nil {
		return nil, err
	}

	c := &registry.Calculation{
		Name:       name,
		Slug:       slug,
		Formula:    formulaStr,
		Indicators: formula.Indicators(node),
		OutputType: outputType,
	}
	if err := e.registry.Create(c); err != nil {
		return nil, err
	}

	if outputType == registry.OutputIndicator {
		if err := e.createCompanion(c); err != nil {
			// Roll the calculation back so a half-created pair never
			// survives.
			_ = e.registry.Delete(c.ID)
			return nil, err
		}
	}
	return c, nil
}

func (e *Engine) createCompanion(c *registry.Calculation) error {
	cfg, err := store.EncodeCalculationSource(store.CalculationSource{
		CalculationID: c.ID,
		Formula:       c.Formula,
	})
	if err != nil {
		return err
	}
	_, err = e.store.CreateIndicator(&store.Indicator{
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  fmt.Sprintf("Calculated: %s", c.Formula),
		SourceType:   store.SourceCalculation,
		SourceConfig: cfg,
		IsActive:     true,
	})
	return err
}

// TestFormula parses and evaluates a formula without persisting anything.
// Backs the admin "Test Formula" action; errors are returned verbatim for
// display.
func (e *Engine) TestFormula(formulaStr string) (eval.Value, error) {
	node, err := formula.Parse(formulaStr, e.hasIndicator)
	if err != nil {
		return nil, err
	}
	return eval.Evaluate(node, e.newContext())
}

// Evaluate runs a stored calculation and enforces its declared output type.
func (e *Engine) Evaluate(c *registry.Calculation) (eval.Value, error) {
	node, err := formula.Parse(c.Formula, nil)
	if err != nil {
		return nil, err
	}
	v, err := eval.Evaluate(node, e.newContext())
	if err != nil {
		return nil, err
	}
	switch c.OutputType {
	case registry.OutputValue:
		if _, ok := v.(eval.ScalarValue); !ok {
			return nil, fmt.Errorf("%w: %s is declared as a value but produces a series", eval.ErrTypeMismatch, c.Slug)
		}
	default:
		if _, ok := v.(eval.SeriesValue); !ok {
			return nil, fmt.Errorf("%w: %s is declared as a series but produces a value", eval.ErrTypeMismatch, c.Slug)
		}
	}
	return v, nil
}

// EvaluateSlug resolves any indicator slug to its series, computing it when
// the indicator is calculation-backed. This is the chart-data entry point.
func (e *Engine) EvaluateSlug(slug string) (series.Series, error) {
	ctx := e.newContext()
	return resolver{e}.Resolve(ctx, slug)
}

// DeleteCalculation removes a calculation by slug or id, along with its
// companion indicator. It refuses when other calculations still reference
// the companion slug, naming the dependents.
func (e *Engine) DeleteCalculation(slugOrID string) error {
	c, err := e.registry.GetBySlug(slugOrID)
	if err != nil {
		c, err = e.registry.Get(slugOrID)
		if err != nil {
			return err
		}
	}

	if c.OutputType == registry.OutputIndicator {
		deps, err := e.registry.ListReferencing(c.Slug)
		if err != nil {
			return err
		}
		var names []string
		for _, d := range deps {
			if d.ID != c.ID {
				names = append(names, d.Slug)
			}
		}
		if len(names) > 0 {
			return fmt.Errorf("%w: %s is referenced by %s", ErrReferenced, c.Slug, strings.Join(names, ", "))
		}

		if ind, err := e.store.FindIndicatorBySlug(c.Slug); err == nil {
			if err := e.store.DeleteIndicator(ind.ID); err != nil {
				return err
			}
		}
	}
	return e.registry.Delete(c.ID)
}

func (e *Engine) newContext() *eval.Context {
	return eval.NewContext(resolver{e}).WithMaxDepth(e.maxDepth)
}

func (e *Engine) hasIndicator(slug string) bool {
	_, err := e.store.FindIndicatorBySlug(slug)
	return err == nil
}

// checkOutputType verifies the declared output shape against the formula's
// statically known result kind. The root node determines it: a function call
// has a declared return kind, an indicator reference is a series, a literal
// is a scalar.
func checkOutputType(node formula.Node, ot registry.OutputType) error {
	var kind functions.Kind
	switch t := node.(type) {
	case formula.FuncCall:
		spec, _ := functions.Lookup(t.Name)
		kind = spec.Returns
	case formula.IndicatorRef:
		kind = functions.KindSeries
	case formula.Literal:
		kind = functions.KindScalar
	}

	wantSeries := ot != registry.OutputValue
	isSeries := kind == functions.KindSeries
	if wantSeries != isSeries {
		return fmt.Errorf("%w: formula produces a %s but output_type is %s",
			registry.ErrInvalidInput, kind, ot)
	}
	return nil
}
