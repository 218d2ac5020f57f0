package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction buckets a fiscal document by the side of the operation.
type Direction string

const (
	DirectionInbound  Direction = "inbound"  // IND_OPER 0, purchase side
	DirectionOutbound Direction = "outbound" // IND_OPER 1, sale side
)

// StatusNormal is the COD_SIT value of a regular, authorized document.
// Anything else (cancelled, denied, complementary...) is kept for audit but
// excluded from aggregates.
const StatusNormal = "00"

// Document is one fiscal invoice entry derived from a C100 record and the
// C170/C190 lines that follow it.
type Document struct {
	ID        string    `json:"id"`
	LedgerID  string    `json:"ledger_id"`
	Direction Direction `json:"direction"`
	Series    string    `json:"series,omitempty"`
	Number    string    `json:"number"`
	AccessKey string    `json:"access_key,omitempty"`

	DocumentDate  *time.Time `json:"document_date"`
	EntryExitDate *time.Time `json:"entry_exit_date,omitempty"`

	TotalValue       decimal.Decimal `json:"total_value"`
	MerchandiseValue decimal.Decimal `json:"merchandise_value"`

	// Status is the raw two-digit COD_SIT code.
	Status string `json:"status"`

	Items   []Item       `json:"items,omitempty"`
	Details []ItemDetail `json:"details,omitempty"`
}

// Counted reports whether the document participates in aggregate
// accumulation: positive value and normal status.
func (d *Document) Counted() bool {
	return d.Status == StatusNormal && d.TotalValue.IsPositive()
}

// Identity returns the key used to correlate the document with externally
// sourced invoices: access key first, then document number, then the
// synthetic per-document id.
func (d *Document) Identity() string {
	if d.AccessKey != "" {
		return d.AccessKey
	}
	if d.Number != "" {
		return d.Number
	}
	return d.ID
}

// Item is a C190 tax-summary line: one per CST x CFOP x rate combination
// within a document.
type Item struct {
	CST            string          `json:"cst"`
	CFOP           string          `json:"cfop"`
	Rate           decimal.Decimal `json:"rate"`
	OperationValue decimal.Decimal `json:"operation_value"`
	TaxBase        decimal.Decimal `json:"tax_base"`
	TaxValue       decimal.Decimal `json:"tax_value"`
}

// ItemDetail is a C170 per-product line. Independent of Item: both record
// types may appear for the same document.
type ItemDetail struct {
	ItemNumber  int             `json:"item_number"`
	ProductCode string          `json:"product_code"`
	Description string          `json:"description,omitempty"`
	Quantity    float64         `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	Value       decimal.Decimal `json:"value"`
	Discount    decimal.Decimal `json:"discount"`
	CST         string          `json:"cst"`
	CFOP        string          `json:"cfop"`
	TaxBase     decimal.Decimal `json:"tax_base"`
	Rate        decimal.Decimal `json:"rate"`
	TaxValue    decimal.Decimal `json:"tax_value"`
	IPIValue    decimal.Decimal `json:"ipi_value"`
	PISValue    decimal.Decimal `json:"pis_value"`
	COFINSValue decimal.Decimal `json:"cofins_value"`
}
