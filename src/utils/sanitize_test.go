package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"  plain note  ":                         "plain note",
		"<b>bold</b> move":                       "bold move",
		"<script>alert(1)</script>gap fill":      "gap fill",
		"P&L looked fine":                        "P&L looked fine",
		`<a href="javascript:x()">link</a> text`: "link text",
	}

	for input, want := range cases {
		assert.Equal(t, want, SanitizeText(input), input)
	}
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "", SanitizeForFormulaInjection(""))
	assert.Equal(t, "'=SUM(A1:A2)", SanitizeForFormulaInjection("=SUM(A1:A2)"))
	assert.Equal(t, "'@cmd", SanitizeForFormulaInjection("@cmd"))
	assert.Equal(t, "'-1+2", SanitizeForFormulaInjection("-1+2"))
	assert.Equal(t, "Breakout", SanitizeForFormulaInjection("Breakout"))
}
