package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComparisonRow is one (date, CFOP) cell of the ledger vs external join.
// Never persisted independently of a reconciliation run.
type ComparisonRow struct {
	Date     time.Time       `json:"date"`
	CFOP     string          `json:"cfop"`
	External decimal.Decimal `json:"external"`
	Ledger   decimal.Decimal `json:"ledger"`
	DiffAbs  decimal.Decimal `json:"diff_abs"`
	DiffPerc decimal.Decimal `json:"diff_perc"`
}

// ComparisonResult carries all cells plus column-wise totals.
type ComparisonResult struct {
	Rows          []ComparisonRow `json:"rows"`
	TotalLedger   decimal.Decimal `json:"total_ledger"`
	TotalExternal decimal.Decimal `json:"total_external"`
}

// MatchStatus classifies an invoice identity within one drill-down cell.
type MatchStatus string

const (
	MatchBoth         MatchStatus = "BOTH"
	MatchOnlyExternal MatchStatus = "ONLY_EXTERNAL"
	MatchOnlyLedger   MatchStatus = "ONLY_LEDGER"
)

// InvoiceDivergence is the per-invoice diff for one (date, CFOP) cell.
type InvoiceDivergence struct {
	Key      string          `json:"key"` // access key, document number, or synthetic id
	Status   MatchStatus     `json:"status"`
	External decimal.Decimal `json:"external"`
	Ledger   decimal.Decimal `json:"ledger"`
	Diff     decimal.Decimal `json:"diff"` // external - ledger
}

// DivergenceDetail is the drill-down result for one cell, entries sorted by
// |diff| descending.
type DivergenceDetail struct {
	Date          time.Time           `json:"date"`
	CFOP          string              `json:"cfop"`
	TotalLedger   decimal.Decimal     `json:"total_ledger"`
	TotalExternal decimal.Decimal     `json:"total_external"`
	DiffAbs       decimal.Decimal     `json:"diff_abs"`
	Entries       []InvoiceDivergence `json:"entries"`
}
