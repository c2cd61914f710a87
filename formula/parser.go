package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zestra/zdmt/functions"
)

// KnownFunc reports whether a normalized slug names a registered indicator.
// A nil KnownFunc skips the existence check; the evaluator's resolver still
// catches dangling references, so re-parsing a stored formula does not need
// a registry round trip.
type KnownFunc func(slug string) bool

// Parse builds the expression tree for a formula.
//
// Grammar: expr := funcCall | indicatorRef | number;
// funcCall := IDENT '(' (expr (',' expr)*)? ')'.
// Function names match the library case-insensitively and arity is checked
// here, so a bad formula is rejected before anything is persisted.
func Parse(input string, known KnownFunc) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyFormula
	}
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, known: known}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %s at position %d", ErrSyntax, t.describe(), t.pos)
	}
	return node, nil
}

type parser struct {
	toks  []token
	pos   int
	known KnownFunc
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseExpr() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed number %q at position %d", ErrSyntax, t.text, t.pos)
		}
		return Literal{Value: v}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		slug := ToSlug(t.text)
		if p.known != nil && !p.known(slug) {
			if _, isFunc := functions.Lookup(t.text); isFunc {
				return nil, fmt.Errorf("%w: %s requires arguments, e.g. %s", ErrSyntax, strings.ToUpper(t.text), mustSyntax(t.text))
			}
			return nil, fmt.Errorf("%w: %s", ErrUnknownIdentifier, t.text)
		}
		return IndicatorRef{Slug: slug}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected %s at position %d", ErrSyntax, t.describe(), t.pos)
	}
}

func (p *parser) parseCall(name token) (Node, error) {
	spec, ok := functions.Lookup(name.text)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name.text)
	}
	p.next() // consume '('

	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if t := p.next(); t.kind != tokRParen {
		return nil, fmt.Errorf("%w: expected ')' but found %s at position %d", ErrSyntax, t.describe(), t.pos)
	}

	if len(args) < spec.MinArgs || len(args) > spec.MaxArgs {
		return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrArityMismatch, spec.Name, arityText(spec), len(args))
	}
	return FuncCall{Name: spec.Name, Args: args}, nil
}

func arityText(spec functions.Spec) string {
	if spec.MinArgs == spec.MaxArgs {
		return fmt.Sprintf("%d argument(s)", spec.MinArgs)
	}
	return fmt.Sprintf("%d to %d arguments", spec.MinArgs, spec.MaxArgs)
}

func mustSyntax(name string) string {
	spec, _ := functions.Lookup(name)
	return spec.Syntax
}
