// Package formula parses the calculation formula language into an expression
// tree. The surface syntax is fixed and user-facing — function calls like
// ROC(GDP_US, 4), nested arbitrarily, over indicator identifiers and numeric
// literals — so the parser accepts exactly that and nothing more.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one expression-tree node: Literal, IndicatorRef, or FuncCall.
type Node interface {
	// String renders the node back in surface syntax.
	String() string

	node()
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// IndicatorRef references an indicator by its normalized slug (lower-kebab,
// e.g. "gdp-us" for the formula identifier GDP_US).
type IndicatorRef struct {
	Slug string
}

// FuncCall applies a library function to its arguments. Name is canonical
// uppercase.
type FuncCall struct {
	Name string
	Args []Node
}

func (Literal) node()      {}
func (IndicatorRef) node() {}
func (FuncCall) node()     {}

func (l Literal) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64)
}

func (r IndicatorRef) String() string {
	return ToIdent(r.Slug)
}

func (c FuncCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

// Indicators returns the distinct indicator slugs referenced by the tree, in
// first-appearance order.
func Indicators(n Node) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case IndicatorRef:
			if !seen[t.Slug] {
				seen[t.Slug] = true
				out = append(out, t.Slug)
			}
		case FuncCall:
			for _, a := range t.Args {
				walk(a)
			}
		}
	}
	walk(n)
	return out
}
