package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/auditware/fiscal-cli/internal/model"
)

func TestFormatComparison(t *testing.T) {
	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	result := &model.ComparisonResult{
		Rows: []model.ComparisonRow{
			{
				Date:     day,
				CFOP:     "5656",
				External: decimal.NewFromFloat(1500.50),
				Ledger:   decimal.NewFromInt(1400),
				DiffAbs:  decimal.NewFromFloat(100.50),
				DiffPerc: decimal.NewFromFloat(7.18),
			},
		},
		TotalLedger:   decimal.NewFromInt(1400),
		TotalExternal: decimal.NewFromFloat(1500.50),
	}

	var buf bytes.Buffer
	formatComparison(&buf, result)

	output := buf.String()
	assert.Contains(t, output, "DATE")
	assert.Contains(t, output, "CFOP")
	assert.Contains(t, output, "2024-01-05")
	assert.Contains(t, output, "5656")
	assert.Contains(t, output, "1500.50")
	assert.Contains(t, output, "1400.00")
	assert.Contains(t, output, "100.50")
	assert.Contains(t, output, "7.18%")
	assert.Contains(t, output, "TOTAL")
}

func TestFormatComparison_NoRows(t *testing.T) {
	var buf bytes.Buffer
	formatComparison(&buf, &model.ComparisonResult{})

	assert.Contains(t, buf.String(), "No differences found.")
}
