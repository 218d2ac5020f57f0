// Package reconcile cross-checks the ledger's outbound aggregates against
// the NF-e sourced external aggregate, at cell level (date x CFOP) and per
// invoice.
package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/auditware/fiscal-cli/internal/model"
)

// DefaultTolerance is the monetary band inside which a difference is
// treated as rounding noise and snapped to zero.
var DefaultTolerance = decimal.NewFromFloat(0.01)

// percEpsilon snaps near-zero percentages produced by decimal division.
var percEpsilon = decimal.NewFromFloat(0.00001)

// DefaultExcludedCFOPs are operations already documented elsewhere (ECF
// coupon re-entries); counting them against NF-e data would double count.
func DefaultExcludedCFOPs() map[string]bool {
	return map[string]bool{"5929": true, "6929": true}
}

// DefaultOutboundModels are the document-type markers of sale-side
// invoices: NF-e (55) and NFC-e (65).
func DefaultOutboundModels() map[string]bool {
	return map[string]bool{"55": true, "65": true}
}

// CompareOptions configures a cell-level comparison run.
type CompareOptions struct {
	CNPJ         string // reference id for external rows; empty matches all
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	ExcludeCFOPs map[string]bool // nil = DefaultExcludedCFOPs
	Models       map[string]bool // nil = DefaultOutboundModels
	Tolerance    decimal.Decimal // zero value = DefaultTolerance

	// OnlyPositiveDiff keeps rows where external exceeds ledger, the
	// under-reporting direction.
	OnlyPositiveDiff bool
}

func (o *CompareOptions) defaults() {
	if o.ExcludeCFOPs == nil {
		o.ExcludeCFOPs = DefaultExcludedCFOPs()
	}
	if o.Models == nil {
		o.Models = DefaultOutboundModels()
	}
	if o.Tolerance.IsZero() {
		o.Tolerance = DefaultTolerance
	}
}

func inPeriod(d time.Time, start, end *time.Time) bool {
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}

type cellKey struct {
	date time.Time
	cfop string
}

// Compare outer-joins the ledger's outbound day+CFOP aggregate against the
// external aggregate and emits one row per cell with snapped differences.
func Compare(dayCodes []model.DayCodeAggregate, external []model.ExternalAggregateRow, opts CompareOptions) model.ComparisonResult {
	opts.defaults()

	ledger := make(map[cellKey]decimal.Decimal)
	for _, agg := range dayCodes {
		if agg.Direction != model.DirectionOutbound {
			continue
		}
		if opts.ExcludeCFOPs[agg.CFOP] {
			continue
		}
		if !inPeriod(agg.Date, opts.PeriodStart, opts.PeriodEnd) {
			continue
		}
		k := cellKey{date: agg.Date, cfop: agg.CFOP}
		ledger[k] = ledger[k].Add(agg.Value)
	}

	ext := make(map[cellKey]decimal.Decimal)
	for _, row := range external {
		if !opts.Models[row.Model] {
			continue
		}
		if opts.CNPJ != "" && row.CNPJ != opts.CNPJ {
			continue
		}
		if opts.ExcludeCFOPs[row.CFOP] {
			continue
		}
		if !inPeriod(row.Date, opts.PeriodStart, opts.PeriodEnd) {
			continue
		}
		k := cellKey{date: row.Date, cfop: row.CFOP}
		ext[k] = ext[k].Add(row.Value)
	}

	var res model.ComparisonResult
	emit := func(k cellKey, extVal, ledVal decimal.Decimal) {
		diffAbs := extVal.Sub(ledVal)
		if diffAbs.Abs().LessThanOrEqual(opts.Tolerance) {
			diffAbs = decimal.Zero
		}
		// When the ledger side is zero the percentage is forced to zero
		// even for a nonzero absolute difference. Intentional: a percent
		// against a zero base is meaningless, and the absolute column
		// still carries the divergence.
		diffPerc := decimal.Zero
		if !ledVal.IsZero() {
			diffPerc = diffAbs.Div(ledVal).Mul(decimal.NewFromInt(100))
			if diffPerc.Abs().LessThan(percEpsilon) {
				diffPerc = decimal.Zero
			}
		}
		if opts.OnlyPositiveDiff && !diffAbs.IsPositive() {
			return
		}
		res.Rows = append(res.Rows, model.ComparisonRow{
			Date:     k.date,
			CFOP:     k.cfop,
			External: extVal,
			Ledger:   ledVal,
			DiffAbs:  diffAbs,
			DiffPerc: diffPerc,
		})
		res.TotalLedger = res.TotalLedger.Add(ledVal)
		res.TotalExternal = res.TotalExternal.Add(extVal)
	}

	for k, extVal := range ext {
		emit(k, extVal, ledger[k])
	}
	for k, ledVal := range ledger {
		if _, matched := ext[k]; matched {
			continue
		}
		// Synthetic row: ledger cell with no external counterpart.
		emit(k, decimal.Zero, ledVal)
	}

	sort.Slice(res.Rows, func(i, j int) bool {
		if !res.Rows[i].Date.Equal(res.Rows[j].Date) {
			return res.Rows[i].Date.Before(res.Rows[j].Date)
		}
		return res.Rows[i].CFOP < res.Rows[j].CFOP
	})

	return res
}
