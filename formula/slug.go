package formula

import "strings"

// Formula identifiers and stored indicator slugs are two spellings of the
// same name: formulas use UPPER_SNAKE (GDP_US) by convention, the indicator
// registry stores lower-kebab (gdp-us). The bijection is lowercase with
// underscores mapped to hyphens, and back.

// ToSlug converts a formula identifier to its stored slug form.
func ToSlug(ident string) string {
	return strings.ReplaceAll(strings.ToLower(ident), "_", "-")
}

// ToIdent converts a stored slug to its formula identifier form.
func ToIdent(slug string) string {
	return strings.ReplaceAll(strings.ToUpper(slug), "-", "_")
}
