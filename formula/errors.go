package formula

import "errors"

// Parse errors are surfaced verbatim to the admin caller, so the wrapped
// messages always name the offending token.
var (
	ErrSyntax            = errors.New("syntax error")
	ErrUnknownFunction   = errors.New("unknown function")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrArityMismatch     = errors.New("wrong number of arguments")
	ErrEmptyFormula      = errors.New("formula is empty")
)
