package sped

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_Basic(t *testing.T) {
	rec, ok := Tokenize("|C190|000|5102|18,00|1500,00|1500,00|270,00|")
	assert.True(t, ok)
	assert.Equal(t, "C190", rec.Type())
	assert.Equal(t, "5102", rec.Field(2))
	assert.Equal(t, "270,00", rec.Field(6))
	assert.Equal(t, 7, rec.Len())
}

func TestTokenize_EmptyFields(t *testing.T) {
	rec, ok := Tokenize("|C100|1||CLI01|55|00||12345||15012024|")
	assert.True(t, ok)
	assert.Equal(t, "", rec.Field(2))
	assert.Equal(t, "12345", rec.Field(7))
}

func TestTokenize_OutOfRange(t *testing.T) {
	rec, ok := Tokenize("|0000|017|")
	assert.True(t, ok)
	assert.Equal(t, "", rec.Field(5))
	assert.Equal(t, "", rec.Field(-1))
}

func TestTokenize_Rejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"\r\n",
		"not a record line",
		"||",
		"| |",
	}
	for _, line := range cases {
		_, ok := Tokenize(line)
		assert.False(t, ok, "line %q should not tokenize", line)
	}
}

func TestTokenize_TrailingCR(t *testing.T) {
	rec, ok := Tokenize("|0200|GAS01|GASOLINA COMUM|||LT|00|\r")
	assert.True(t, ok)
	assert.Equal(t, "0200", rec.Type())
	assert.Equal(t, "LT", rec.Field(5))
}
