package sped

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// parseDecimalBR parses a Brazilian-format decimal (comma separator, no
// thousands separator), returning zero if parsing fails or the field is
// empty. Vendor exports routinely carry junk here; never an error.
func parseDecimalBR(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseFloatBR parses a comma-decimal quantity field as float64, returning
// 0 if parsing fails.
func parseFloatBR(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseIntOr parses an integer field, returning def if parsing fails.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseDateBR parses a ddMMyyyy date field, returning nil if the field is
// empty or invalid.
func parseDateBR(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return nil
	}
	t, err := time.ParseInLocation("02012006", s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
