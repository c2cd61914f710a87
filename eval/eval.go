// Package eval walks a formula expression tree and produces either a series
// or a scalar. It is a pure function of the tree and its context: indicator
// data comes in only through the Resolver, so evaluation is deterministic
// and unit-testable with a stub.
package eval

import (
	"errors"
	"fmt"

	"github.com/zestra/zdmt/formula"
	"github.com/zestra/zdmt/functions"
	"github.com/zestra/zdmt/series"
)

var (
	ErrMissingData       = errors.New("indicator has no data")
	ErrUnknownIndicator  = errors.New("unknown indicator")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrCircularReference = errors.New("circular reference")
	ErrDepthExceeded     = errors.New("reference chain too deep")
)

// MaxDepth bounds recursion through nested calculation references. Cycle
// detection handles loops; the depth limit guards acyclic chains deep enough
// to threaten the stack.
const MaxDepth = 32

// Value is the result of evaluating an expression: either a full series or a
// single scalar. A nil scalar means "no data", which is a valid result (an
// aggregate over an all-null series), not an error.
type Value interface {
	value()
}

type SeriesValue struct {
	Series series.Series
}

type ScalarValue struct {
	Scalar *float64
}

func (SeriesValue) value() {}
func (ScalarValue) value() {}

// Resolver resolves a normalized indicator slug to its series. The engine's
// implementation dispatches between raw stored indicators and
// calculation-backed ones, recursing through the same Context.
type Resolver interface {
	Resolve(ctx *Context, slug string) (series.Series, error)
}

// Context carries the resolver plus the cycle-detection set and depth
// counter shared across one evaluation request.
type Context struct {
	resolver   Resolver
	inProgress map[string]bool
	depth      int
	maxDepth   int
}

func NewContext(r Resolver) *Context {
	return &Context{
		resolver:   r,
		inProgress: make(map[string]bool),
		maxDepth:   MaxDepth,
	}
}

// WithMaxDepth overrides the recursion limit. Zero or negative keeps the
// default.
func (c *Context) WithMaxDepth(n int) *Context {
	if n > 0 {
		c.maxDepth = n
	}
	return c
}

// Enter marks a calculation slug as in progress before its formula is
// recursively evaluated. It fails on a cycle or when the chain is too deep;
// every successful Enter must be paired with Exit.
func (c *Context) Enter(slug string) error {
	if c.inProgress[slug] {
		return fmt.Errorf("%w: %s", ErrCircularReference, formula.ToIdent(slug))
	}
	if c.depth >= c.maxDepth {
		return fmt.Errorf("%w: more than %d nested calculations", ErrDepthExceeded, c.maxDepth)
	}
	c.inProgress[slug] = true
	c.depth++
	return nil
}

func (c *Context) Exit(slug string) {
	delete(c.inProgress, slug)
	c.depth--
}

// Evaluate walks the tree bottom-up. Structural problems (type mismatches,
// missing indicators, cycles) abort the whole evaluation; data-level gaps
// (nulls, zero denominators) flow through as null points.
func Evaluate(node formula.Node, ctx *Context) (Value, error) {
	switch t := node.(type) {
	case formula.Literal:
		v := t.Value
		return ScalarValue{Scalar: &v}, nil

	case formula.IndicatorRef:
		s, err := ctx.resolver.Resolve(ctx, t.Slug)
		if err != nil {
			return nil, err
		}
		return SeriesValue{Series: s}, nil

	case formula.FuncCall:
		args := make([]Value, len(t.Args))
		for i, a := range t.Args {
			v, err := Evaluate(a, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return apply(t, args)

	default:
		return nil, fmt.Errorf("unsupported expression node %T", node)
	}
}

// apply dispatches a function call to the library, enforcing argument kinds:
// position 0 is always a series, trailing positions are scalars.
func apply(call formula.FuncCall, args []Value) (Value, error) {
	s, err := seriesArg(call.Name, args, 0)
	if err != nil {
		return nil, err
	}

	switch call.Name {
	case "SUM":
		return ScalarValue{Scalar: functions.Sum(s)}, nil
	case "AVG":
		return ScalarValue{Scalar: functions.Avg(s)}, nil
	case "MIN":
		bound, err := optScalarArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		return ScalarValue{Scalar: functions.Min(s, bound)}, nil
	case "MAX":
		bound, err := optScalarArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		return ScalarValue{Scalar: functions.Max(s, bound)}, nil
	case "MA":
		n, err := intArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		out, err := functions.MA(s, n)
		return wrapSeries(call.Name, out, err)
	case "ROC":
		n, err := intArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		out, err := functions.ROC(s, n)
		return wrapSeries(call.Name, out, err)
	case "MOMENTUM":
		n, err := intArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		out, err := functions.Momentum(s, n)
		return wrapSeries(call.Name, out, err)
	case "RSI":
		n, err := intArg(call.Name, args, 1)
		if err != nil {
			return nil, err
		}
		out, err := functions.RSI(s, n)
		return wrapSeries(call.Name, out, err)
	default:
		// Unreachable for trees built by the parser.
		return nil, fmt.Errorf("unsupported function %s", call.Name)
	}
}

func wrapSeries(name string, s series.Series, err error) (Value, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return SeriesValue{Series: s}, nil
}

func seriesArg(fn string, args []Value, i int) (series.Series, error) {
	sv, ok := args[i].(SeriesValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s argument %d must be a series", ErrTypeMismatch, fn, i+1)
	}
	return sv.Series, nil
}

func optScalarArg(fn string, args []Value, i int) (*float64, error) {
	if i >= len(args) {
		return nil, nil
	}
	sv, ok := args[i].(ScalarValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s argument %d must be a number", ErrTypeMismatch, fn, i+1)
	}
	return sv.Scalar, nil
}

func intArg(fn string, args []Value, i int) (int, error) {
	sv, ok := args[i].(ScalarValue)
	if !ok || sv.Scalar == nil {
		return 0, fmt.Errorf("%w: %s argument %d must be a number", ErrTypeMismatch, fn, i+1)
	}
	n := int(*sv.Scalar)
	if float64(n) != *sv.Scalar {
		return 0, fmt.Errorf("%w: %s argument %d must be a whole number", ErrTypeMismatch, fn, i+1)
	}
	return n, nil
}
