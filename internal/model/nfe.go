package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the authorization state of an externally sourced NF-e.
type InvoiceStatus string

const (
	InvoiceAuthorized InvoiceStatus = "authorized"
	InvoiceCancelled  InvoiceStatus = "cancelled"
	InvoiceDenied     InvoiceStatus = "denied"
)

// ExternalInvoice is one already-parsed NF-e supplied by the invoice source
// collaborator. Extracting it from its wire format (XML) is out of scope.
type ExternalInvoice struct {
	AccessKey    string        `json:"access_key"`
	Number       string        `json:"number,omitempty"`
	Model        string        `json:"model"` // document-type marker, e.g. "55", "65"
	EmissionDate *time.Time    `json:"emission_date"`
	EmitterCNPJ  string        `json:"emitter_cnpj"`
	ReceiverCNPJ string        `json:"receiver_cnpj,omitempty"`
	Status       InvoiceStatus `json:"status"`
	Lines        []InvoiceLine `json:"lines,omitempty"`
}

// InvoiceLine is one product line of an external invoice.
type InvoiceLine struct {
	CFOP        string          `json:"cfop"`
	ProductCode string          `json:"product_code,omitempty"`
	Quantity    float64         `json:"quantity,omitempty"`
	Value       decimal.Decimal `json:"value"`
}

// ExternalAggregateKey identifies one upserted external aggregate row.
type ExternalAggregateKey struct {
	CNPJ  string    `json:"cnpj"`
	Date  time.Time `json:"date"`
	CFOP  string    `json:"cfop"`
	Model string    `json:"model"`
}

// ExternalAggregateRow is the additive sum of qualifying invoice lines for
// one key. Built incrementally as batches are imported.
type ExternalAggregateRow struct {
	ExternalAggregateKey
	Value    decimal.Decimal `json:"value"`
	Invoices int             `json:"invoices"`
}

// RejectReason tags why an invoice was rejected during import.
type RejectReason string

const (
	RejectUnparsable    RejectReason = "unparsable"
	RejectNotAuthorized RejectReason = "not_authorized"
	RejectWrongCNPJ     RejectReason = "wrong_cnpj"
	RejectOutsidePeriod RejectReason = "outside_period"
	RejectDuplicate     RejectReason = "duplicate"
	RejectNoLines       RejectReason = "no_qualifying_lines"
)

// RejectionDetail records one rejected invoice with its reason.
type RejectionDetail struct {
	AccessKey string       `json:"access_key"`
	Reason    RejectReason `json:"reason"`
	Message   string       `json:"message,omitempty"`
}

// ImportResult summarizes one batch import. Per-invoice rejection never
// aborts the batch, so counts always cover the whole input.
type ImportResult struct {
	Accepted  int                  `json:"accepted"`
	Rejected  int                  `json:"rejected"`
	ByReason  map[RejectReason]int `json:"by_reason,omitempty"`
	Rejections []RejectionDetail   `json:"rejections,omitempty"`
}
