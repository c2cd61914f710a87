package calc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zestra/zdmt/eval"
	"github.com/zestra/zdmt/registry"
	"github.com/zestra/zdmt/series"
	"github.com/zestra/zdmt/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Memory, registry.Registry) {
	t.Helper()

	st := store.NewMemory()
	reg, err := registry.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	return NewEngine(st, reg), st, reg
}

func addIndicator(t *testing.T, st *store.Memory, slug string, values ...*float64) {
	t.Helper()

	ind := &store.Indicator{Name: slug, Slug: slug, SourceType: "csv", IsActive: true}
	id, err := st.CreateIndicator(ind)
	require.NoError(t, err)

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make(series.Series, len(values))
	for i, v := range values {
		pts[i] = series.Point{Date: start.AddDate(0, 3*i, 0), Value: v}
	}
	require.NoError(t, st.UpsertPoints(id, pts))
}

func f(v float64) *float64 { return series.Float(v) }

func TestTestFormulaROC(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(100), f(102), f(105))

	v, err := engine.TestFormula("ROC(GDP_US, 1)")
	require.NoError(t, err)

	sv, ok := v.(eval.SeriesValue)
	require.True(t, ok)
	require.Len(t, sv.Series, 3)
	assert.Nil(t, sv.Series[0].Value)
	assert.InDelta(t, 2.0, *sv.Series[1].Value, 1e-9)
	assert.InDelta(t, 2.9411764706, *sv.Series[2].Value, 1e-6)
}

func TestTestFormulaAvgExcludesNulls(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "unemployment-us", f(4), f(5), nil, f(6))

	v, err := engine.TestFormula("AVG(UNEMPLOYMENT_US)")
	require.NoError(t, err)

	sv, ok := v.(eval.ScalarValue)
	require.True(t, ok)
	require.NotNil(t, sv.Scalar)
	assert.InDelta(t, 5.0, *sv.Scalar, 1e-9)
}

func TestCreateIndicatorOutputRegistersCompanion(t *testing.T) {
	t.Parallel()

	engine, st, reg := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(1), f(2), f(3), f(4), f(5))

	c, err := engine.CreateCalculation("GDP 12M MA", "MA(GDP_US, 3)", nil, registry.OutputIndicator)
	require.NoError(t, err)
	assert.Equal(t, "gdp-12m-ma", c.Slug)
	assert.Equal(t, []string{"gdp-us"}, c.Indicators)

	stored, err := reg.GetBySlug("gdp-12m-ma")
	require.NoError(t, err)
	assert.Equal(t, "MA(GDP_US, 3)", stored.Formula)

	companion, err := st.FindIndicatorBySlug("gdp-12m-ma")
	require.NoError(t, err)
	assert.Equal(t, store.SourceCalculation, companion.SourceType)
	link, err := companion.CalculationLink()
	require.NoError(t, err)
	assert.Equal(t, c.ID, link.CalculationID)

	// A chart-data request for the new slug returns the moving average.
	got, err := engine.EvaluateSlug("gdp-12m-ma")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[1].Value)
	assert.InDelta(t, 2.0, *got[2].Value, 1e-9)
	assert.InDelta(t, 4.0, *got[4].Value, 1e-9)
}

func TestCreateUnknownFunctionPersistsNothing(t *testing.T) {
	t.Parallel()

	engine, st, reg := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(1), f(2))

	_, err := engine.CreateCalculation("Broken", "FOO(GDP_US, 3)", nil, registry.OutputSeries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOO")

	calcs, err := reg.List(10)
	require.NoError(t, err)
	assert.Empty(t, calcs)
	_, err = st.FindIndicatorBySlug("broken")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateChecksDeclaredSlugsAndOutputType(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(1), f(2))

	// Declared indicator that doesn't exist.
	_, err := engine.CreateCalculation("x", "AVG(GDP_US)", []string{"CPI_US"}, registry.OutputValue)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPI_US")

	// Scalar formula declared as a series.
	_, err = engine.CreateCalculation("x", "AVG(GDP_US)", nil, registry.OutputSeries)
	assert.ErrorIs(t, err, registry.ErrInvalidInput)

	// Series formula declared as a value.
	_, err = engine.CreateCalculation("x", "MA(GDP_US, 2)", nil, registry.OutputValue)
	assert.ErrorIs(t, err, registry.ErrInvalidInput)

	// Empty name.
	_, err = engine.CreateCalculation("  ", "AVG(GDP_US)", nil, registry.OutputValue)
	assert.ErrorIs(t, err, registry.ErrInvalidInput)
}

func TestSlugCollisionGetsSuffix(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(1), f(2), f(3))

	first, err := engine.CreateCalculation("GDP Trend", "MA(GDP_US, 2)", nil, registry.OutputSeries)
	require.NoError(t, err)
	second, err := engine.CreateCalculation("GDP Trend", "MA(GDP_US, 3)", nil, registry.OutputSeries)
	require.NoError(t, err)

	assert.Equal(t, "gdp-trend", first.Slug)
	assert.Equal(t, "gdp-trend-2", second.Slug)
}

func TestEvaluateDeclaredValue(t *testing.T) {
	t.Parallel()

	engine, st, reg := newTestEngine(t)
	addIndicator(t, st, "unemployment-us", f(4), f(5), nil, f(6))

	c, err := engine.CreateCalculation("Avg Unemployment", "AVG(UNEMPLOYMENT_US)", nil, registry.OutputValue)
	require.NoError(t, err)

	stored, err := reg.GetBySlug(c.Slug)
	require.NoError(t, err)
	v, err := engine.Evaluate(stored)
	require.NoError(t, err)

	sv := v.(eval.ScalarValue)
	require.NotNil(t, sv.Scalar)
	assert.InDelta(t, 5.0, *sv.Scalar, 1e-9)
}

func TestNestedCalculationChain(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(100), f(110), f(121), f(133.1))

	_, err := engine.CreateCalculation("GDP MA", "MA(GDP_US, 2)", nil, registry.OutputIndicator)
	require.NoError(t, err)
	_, err = engine.CreateCalculation("GDP MA Growth", "ROC(GDP_MA, 1)", nil, registry.OutputIndicator)
	require.NoError(t, err)

	got, err := engine.EvaluateSlug("gdp-ma-growth")
	require.NoError(t, err)
	require.Len(t, got, 4)

	// MA(2) = [null, 105, 115.5, 127.05]; ROC(1) over it is null until two
	// averages exist.
	assert.Nil(t, got[0].Value)
	assert.Nil(t, got[1].Value)
	assert.InDelta(t, 10.0, *got[2].Value, 1e-9)
	assert.InDelta(t, 10.0, *got[3].Value, 1e-9)
}

func TestCircularReferenceRejected(t *testing.T) {
	t.Parallel()

	engine, st, reg := newTestEngine(t)

	// Build the cycle behind the engine's back: two calculation-backed
	// indicators whose formulas reference each other.
	a := &registry.Calculation{Name: "a", Slug: "calc-a", Formula: "MA(CALC_B, 2)", Indicators: []string{"calc-b"}, OutputType: registry.OutputIndicator}
	require.NoError(t, reg.Create(a))
	b := &registry.Calculation{Name: "b", Slug: "calc-b", Formula: "MA(CALC_A, 2)", Indicators: []string{"calc-a"}, OutputType: registry.OutputIndicator}
	require.NoError(t, reg.Create(b))

	for _, c := range []*registry.Calculation{a, b} {
		cfg, err := store.EncodeCalculationSource(store.CalculationSource{CalculationID: c.ID, Formula: c.Formula})
		require.NoError(t, err)
		_, err = st.CreateIndicator(&store.Indicator{
			Name: c.Name, Slug: c.Slug, SourceType: store.SourceCalculation, SourceConfig: cfg, IsActive: true,
		})
		require.NoError(t, err)
	}

	_, err := engine.EvaluateSlug("calc-a")
	assert.ErrorIs(t, err, eval.ErrCircularReference)
}

func TestDepthLimit(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	engine.WithMaxDepth(3)
	addIndicator(t, st, "base", f(1), f(2), f(3), f(4), f(5), f(6))

	prev := "BASE"
	var lastSlug string
	for _, name := range []string{"l1", "l2", "l3", "l4"} {
		c, err := engine.CreateCalculation(name, "MA("+prev+", 2)", nil, registry.OutputIndicator)
		require.NoError(t, err)
		prev = "L" + name[1:]
		lastSlug = c.Slug
	}

	_, err := engine.EvaluateSlug(lastSlug)
	assert.ErrorIs(t, err, eval.ErrDepthExceeded)
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(1), f(2), f(3))

	_, err := engine.CreateCalculation("GDP MA", "MA(GDP_US, 2)", nil, registry.OutputIndicator)
	require.NoError(t, err)
	_, err = engine.CreateCalculation("GDP MA Growth", "ROC(GDP_MA, 1)", nil, registry.OutputSeries)
	require.NoError(t, err)

	err = engine.DeleteCalculation("gdp-ma")
	require.ErrorIs(t, err, ErrReferenced)
	assert.Contains(t, err.Error(), "gdp-ma-growth")

	// Deleting the dependent first unblocks it, and the companion goes too.
	require.NoError(t, engine.DeleteCalculation("gdp-ma-growth"))
	require.NoError(t, engine.DeleteCalculation("gdp-ma"))
	_, err = st.FindIndicatorBySlug("gdp-ma")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvaluateSlugRawIndicator(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	addIndicator(t, st, "gdp-us", f(7), f(8))

	got, err := engine.EvaluateSlug("gdp-us")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 7, *got[0].Value, 1e-9)
}

func TestEvaluateSlugMissingData(t *testing.T) {
	t.Parallel()

	engine, st, _ := newTestEngine(t)
	_, err := st.CreateIndicator(&store.Indicator{Name: "empty", Slug: "empty", SourceType: "csv", IsActive: true})
	require.NoError(t, err)

	_, err = engine.EvaluateSlug("empty")
	assert.ErrorIs(t, err, eval.ErrMissingData)

	_, err = engine.EvaluateSlug("never-created")
	assert.ErrorIs(t, err, eval.ErrUnknownIndicator)
}
