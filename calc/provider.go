package calc

import (
	"errors"
	"fmt"

	"github.com/zestra/zdmt/eval"
	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/series"
	"github.com/zestra/zdmt/store"
)

// ErrReferenced is returned when deleting a calculation whose companion
// indicator other calculations still reference.
var ErrReferenced = errors.New("calculation is referenced by other calculations")

// SeriesProvider supplies the series behind one indicator. Raw indicators
// read stored points; calculation-backed ones evaluate their formula through
// the shared context, so resolving a reference is a single dispatch rather
// than a source_type string switch.
type SeriesProvider interface {
	Series(ctx *eval.Context) (series.Series, error)
}

// resolver implements eval.Resolver by looking the slug up in the store and
// dispatching to the matching provider.
type resolver struct {
	e *Engine
}

func (r resolver) Resolve(ctx *eval.Context, slug string) (series.Series, error) {
	ind, err := r.e.store.FindIndicatorBySlug(slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", eval.ErrUnknownIndicator, formula.ToIdent(slug))
		}
		return nil, err
	}
	return r.providerFor(ind).Series(ctx)
}

func (r resolver) providerFor(ind *store.Indicator) SeriesProvider {
	if ind.SourceType == store.SourceCalculation {
		return calculationProvider{e: r.e, indicator: ind}
	}
	return rawProvider{st: r.e.store, indicator: ind}
}

// rawProvider reads stored data points. An indicator with zero points is a
// structural error, not an empty result: the caller asked for data that was
// never ingested.
type rawProvider struct {
	st        store.Store
	indicator *store.Indicator
}

func (p rawProvider) Series(_ *eval.Context) (series.Series, error) {
	s, err := p.st.GetSeries(p.indicator.ID)
	if err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: %s", eval.ErrMissingData, formula.ToIdent(p.indicator.Slug))
	}
	return s, nil
}

// calculationProvider re-evaluates the backing formula. The context's
// in-progress set guards against reference cycles and its depth counter
// against runaway acyclic chains.
type calculationProvider struct {
	e         *Engine
	indicator *store.Indicator
}

func (p calculationProvider) Series(ctx *eval.Context) (series.Series, error) {
	slug := p.indicator.Slug
	if err := ctx.Enter(slug); err != nil {
		return nil, err
	}
	defer ctx.Exit(slug)

	link, err := p.indicator.CalculationLink()
	if err != nil {
		return nil, fmt.Errorf("indicator %s: %w", slug, err)
	}
	c, err := p.e.registry.Get(link.CalculationID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, fmt.Errorf("indicator %s: backing calculation is gone: %w", slug, err)
		}
		return nil, err
	}

	node, err := formula.Parse(c.Formula, nil)
	if err != nil {
		return nil, fmt.Errorf("calculation %s: %w", c.Slug, err)
	}
	v, err := eval.Evaluate(node, ctx)
	if err != nil {
		return nil, err
	}
	sv, ok := v.(eval.SeriesValue)
	if !ok {
		return nil, fmt.Errorf("%w: calculation %s backs an indicator but produces a value", eval.ErrTypeMismatch, c.Slug)
	}
	return sv.Series, nil
}
