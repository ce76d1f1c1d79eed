package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText strips every HTML tag from free text and trims it.
// Entities escaped by the policy are decoded back so "P&L" survives.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictHTMLPolicy.Sanitize(input)))
}

// SanitizeForFormulaInjection prefixes cells that spreadsheet programs
// would evaluate as formulas.
func SanitizeForFormulaInjection(input string) string {
	if input == "" {
		return input
	}
	switch input[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + input
	}
	return input
}
