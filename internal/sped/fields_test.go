package sped

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalBR(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(1234.56).Equal(parseDecimalBR("1234,56")))
	assert.True(t, decimal.NewFromInt(100).Equal(parseDecimalBR("100")))
	assert.True(t, parseDecimalBR("").IsZero())
	assert.True(t, parseDecimalBR("abc").IsZero())
	assert.True(t, parseDecimalBR("12,3,4").IsZero())
	assert.True(t, decimal.NewFromFloat(-5.5).Equal(parseDecimalBR("-5,5")))
}

func TestParseFloatBR(t *testing.T) {
	assert.Equal(t, 1500.75, parseFloatBR("1500,75"))
	assert.Equal(t, 0.0, parseFloatBR(""))
	assert.Equal(t, 0.0, parseFloatBR("x"))
}

func TestParseDateBR(t *testing.T) {
	d := parseDateBR("15012024")
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), *d)

	assert.Nil(t, parseDateBR(""))
	assert.Nil(t, parseDateBR("99999999"))
	assert.Nil(t, parseDateBR("1501202"))   // short
	assert.Nil(t, parseDateBR("32012024"))  // day 32
}

func TestParseIntOr(t *testing.T) {
	assert.Equal(t, 3, parseIntOr("3", 0))
	assert.Equal(t, 7, parseIntOr("", 7))
	assert.Equal(t, 7, parseIntOr("x", 7))
}
