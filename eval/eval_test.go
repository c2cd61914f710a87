package eval

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/series"
)

// stubResolver serves fixed series by slug; unknown slugs fail like the real
// resolver does.
type stubResolver struct {
	data map[string]series.Series
}

func (r stubResolver) Resolve(_ *Context, slug string) (series.Series, error) {
	s, ok := r.data[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndicator, slug)
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingData, slug)
	}
	return s, nil
}

func monthly(values ...*float64) series.Series {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(series.Series, len(values))
	for i, v := range values {
		s[i] = series.Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return s
}

func f(v float64) *float64 { return series.Float(v) }

func testContext(data map[string]series.Series) *Context {
	return NewContext(stubResolver{data: data})
}

func mustParse(t *testing.T, src string) formula.Node {
	t.Helper()
	node, err := formula.Parse(src, nil)
	require.NoError(t, err)
	return node
}

func TestEvaluateLiteral(t *testing.T) {
	t.Parallel()

	v, err := Evaluate(mustParse(t, "42"), testContext(nil))
	require.NoError(t, err)
	sv, ok := v.(ScalarValue)
	require.True(t, ok)
	assert.InDelta(t, 42.0, *sv.Scalar, 1e-9)
}

func TestEvaluateIndicatorRef(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"gdp-us": monthly(f(1), f(2))}
	v, err := Evaluate(mustParse(t, "GDP_US"), testContext(data))
	require.NoError(t, err)
	sv, ok := v.(SeriesValue)
	require.True(t, ok)
	assert.Len(t, sv.Series, 2)
}

func TestEvaluateFuncOverSeries(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"gdp-us": monthly(f(100), f(102), f(105))}
	v, err := Evaluate(mustParse(t, "ROC(GDP_US, 1)"), testContext(data))
	require.NoError(t, err)

	sv := v.(SeriesValue)
	require.Len(t, sv.Series, 3)
	assert.Nil(t, sv.Series[0].Value)
	assert.InDelta(t, 2.0, *sv.Series[1].Value, 1e-9)
}

func TestEvaluateNestedFunc(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"gdp-us": monthly(f(1), f(2), f(3), f(4))}
	v, err := Evaluate(mustParse(t, "AVG(MA(GDP_US, 2))"), testContext(data))
	require.NoError(t, err)

	// MA(2) = [null, 1.5, 2.5, 3.5]; AVG = 2.5.
	sv := v.(ScalarValue)
	require.NotNil(t, sv.Scalar)
	assert.InDelta(t, 2.5, *sv.Scalar, 1e-9)
}

func TestEvaluateTypeMismatch(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"gdp-us": monthly(f(1), f(2))}

	// Scalar where a series is expected.
	_, err := Evaluate(mustParse(t, "AVG(5)"), testContext(data))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// Series where a scalar is expected.
	_, err = Evaluate(mustParse(t, "MA(GDP_US, GDP_US)"), testContext(data))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// Fractional window.
	_, err = Evaluate(mustParse(t, "MA(GDP_US, 2.5)"), testContext(data))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestEvaluateUnknownIndicator(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(mustParse(t, "AVG(NOPE)"), testContext(nil))
	assert.ErrorIs(t, err, ErrUnknownIndicator)
}

func TestEvaluateMissingData(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"empty": {}}
	_, err := Evaluate(mustParse(t, "AVG(EMPTY)"), testContext(data))
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestContextCycleDetection(t *testing.T) {
	t.Parallel()

	ctx := testContext(nil)
	require.NoError(t, ctx.Enter("a"))
	require.NoError(t, ctx.Enter("b"))

	err := ctx.Enter("a")
	assert.ErrorIs(t, err, ErrCircularReference)
	assert.Contains(t, err.Error(), "A")

	// Exiting clears the slug for later evaluation branches.
	ctx.Exit("b")
	require.NoError(t, ctx.Enter("b"))
}

func TestContextDepthLimit(t *testing.T) {
	t.Parallel()

	ctx := testContext(nil).WithMaxDepth(3)
	require.NoError(t, ctx.Enter("a"))
	require.NoError(t, ctx.Enter("b"))
	require.NoError(t, ctx.Enter("c"))

	err := ctx.Enter("d")
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

// Evaluating the same tree twice against unchanged data yields identical
// results.
func TestEvaluateIdempotent(t *testing.T) {
	t.Parallel()

	data := map[string]series.Series{"gdp-us": monthly(f(100), f(104), f(103), f(110))}
	node := mustParse(t, "MA(ROC(GDP_US, 1), 2)")

	first, err := Evaluate(node, testContext(data))
	require.NoError(t, err)
	second, err := Evaluate(node, testContext(data))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
