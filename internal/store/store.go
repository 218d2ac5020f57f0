// Package store persists parsed ledgers, their aggregate projections,
// imported external invoices, and fuel-audit findings. Two backends are
// provided: SQLite for single-user CLI runs and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/model"
)

// ErrLedgerNotFound is returned when a ledger id does not resolve. Commands
// treat it as a fatal caller-input error rather than a degraded result.
var ErrLedgerNotFound = eris.New("ledger not found")

// LedgerFilter specifies criteria for listing ledgers.
type LedgerFilter struct {
	CNPJ   string `json:"cnpj,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// LedgerSummary is the listing view of a stored ledger: metadata only, no
// document graph.
type LedgerSummary struct {
	ID          string     `json:"id"`
	CompanyName string     `json:"company_name,omitempty"`
	CNPJ        string     `json:"cnpj,omitempty"`
	FileName    string     `json:"file_name,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
	Documents   int        `json:"documents"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Store defines the persistence interface shared by both backends.
type Store interface {
	// Ledgers
	SaveLedger(ctx context.Context, ledger *model.Ledger, proj aggregate.Projection) error
	GetLedger(ctx context.Context, ledgerID string) (*LedgerSummary, error)
	LoadLedger(ctx context.Context, ledgerID string) (*model.Ledger, error)
	ListLedgers(ctx context.Context, filter LedgerFilter) ([]LedgerSummary, error)
	DeleteLedger(ctx context.Context, ledgerID string) error

	// Aggregate projections
	GetAggregates(ctx context.Context, ledgerID string) (aggregate.Projection, error)
	ReplaceAggregates(ctx context.Context, ledgerID string, proj aggregate.Projection) error

	// External invoices
	SaveInvoices(ctx context.Context, invoices []model.ExternalInvoice) error
	ListInvoices(ctx context.Context, cnpj string) ([]model.ExternalInvoice, error)
	SeenAccessKeys(ctx context.Context) (map[string]struct{}, error)

	// External aggregate
	GetExternalAggregate(ctx context.Context, cnpj string) ([]model.ExternalAggregateRow, error)
	ReplaceExternalAggregate(ctx context.Context, cnpj string, rows []model.ExternalAggregateRow) error

	// Fuel findings
	ReplaceInconsistencies(ctx context.Context, ledgerID string, findings []model.Inconsistency) error
	ListInconsistencies(ctx context.Context, ledgerID string) ([]model.Inconsistency, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const dateLayout = "2006-01-02"

// formatDate renders a nullable date as the stable YYYY-MM-DD column form.
func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// parseDate reverses formatDate.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, eris.Wrapf(err, "store: parse date %q", s)
	}
	t = t.UTC()
	return &t, nil
}
