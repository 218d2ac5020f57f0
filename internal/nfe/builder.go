// Package nfe builds the external (NF-e sourced) aggregate that the
// reconciliation engine joins against the ledger.
package nfe

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/pkg/nfekey"
)

// Filters constrains which invoices and lines qualify during import.
type Filters struct {
	// CNPJ restricts imports to invoices where either participant matches.
	// Empty means no participant filter.
	CNPJ string

	// Period window on the emission date; nil bounds are open.
	PeriodStart *time.Time
	PeriodEnd   *time.Time

	// IncludeCFOPs, when non-empty, keeps only lines with these codes.
	// ExcludeCFOPs removes lines after the include pass.
	IncludeCFOPs map[string]bool
	ExcludeCFOPs map[string]bool
}

func (f Filters) qualifies(line model.InvoiceLine) bool {
	if len(f.IncludeCFOPs) > 0 && !f.IncludeCFOPs[line.CFOP] {
		return false
	}
	if f.ExcludeCFOPs[line.CFOP] {
		return false
	}
	return true
}

// Builder merges invoice batches into the keyed external aggregate.
// Dedup by access key spans previously imported invoices (seeded via
// NewBuilder) and invoices within the current batch, so re-importing a
// batch rejects every invoice instead of double-merging. Merges across
// distinct invoices sharing a key are additive, associative and
// commutative: chunking a batch never changes the final rows.
type Builder struct {
	seen     map[string]bool
	rows     map[model.ExternalAggregateKey]*model.ExternalAggregateRow
	accepted []model.ExternalInvoice
}

// NewBuilder seeds a Builder with previously imported access keys and
// aggregate rows loaded from the store.
func NewBuilder(seenKeys []string, existing []model.ExternalAggregateRow) *Builder {
	b := &Builder{
		seen: make(map[string]bool, len(seenKeys)),
		rows: make(map[model.ExternalAggregateKey]*model.ExternalAggregateRow, len(existing)),
	}
	for _, k := range seenKeys {
		b.seen[k] = true
	}
	for i := range existing {
		row := existing[i]
		b.rows[row.ExternalAggregateKey] = &row
	}
	return b
}

// ImportBatch processes every invoice independently; a rejected invoice
// never aborts the batch. The result carries full counts and per-reason
// details for exactly what was rejected.
func (b *Builder) ImportBatch(invoices []model.ExternalInvoice, filters Filters) model.ImportResult {
	res := model.ImportResult{ByReason: make(map[model.RejectReason]int)}

	for i := range invoices {
		inv := &invoices[i]
		if reason, msg := b.check(inv, filters); reason != "" {
			res.Rejected++
			res.ByReason[reason]++
			res.Rejections = append(res.Rejections, model.RejectionDetail{
				AccessKey: inv.AccessKey,
				Reason:    reason,
				Message:   msg,
			})
			continue
		}

		b.merge(inv, filters)
		b.seen[inv.AccessKey] = true
		b.accepted = append(b.accepted, *inv)
		res.Accepted++
	}

	return res
}

func (b *Builder) check(inv *model.ExternalInvoice, f Filters) (model.RejectReason, string) {
	if inv.AccessKey == "" || inv.EmissionDate == nil {
		return model.RejectUnparsable, "missing access key or emission date"
	}
	if _, err := nfekey.Parse(inv.AccessKey); err != nil {
		return model.RejectUnparsable, "malformed access key"
	}
	if !nfekey.Valid(inv.AccessKey) {
		// Check-digit failures occur in the wild on otherwise usable
		// invoices; log and keep going.
		zap.L().Warn("nfe: access key fails check digit", zap.String("key", inv.AccessKey))
	}
	if inv.Status != model.InvoiceAuthorized {
		return model.RejectNotAuthorized, fmt.Sprintf("status %s", inv.Status)
	}
	if f.CNPJ != "" && inv.EmitterCNPJ != f.CNPJ && inv.ReceiverCNPJ != f.CNPJ {
		return model.RejectWrongCNPJ, "neither participant matches filter"
	}
	d := *inv.EmissionDate
	if f.PeriodStart != nil && d.Before(*f.PeriodStart) {
		return model.RejectOutsidePeriod, "emission before period start"
	}
	if f.PeriodEnd != nil && d.After(*f.PeriodEnd) {
		return model.RejectOutsidePeriod, "emission after period end"
	}
	if b.seen[inv.AccessKey] {
		return model.RejectDuplicate, "access key already imported"
	}
	qualifying := 0
	for _, line := range inv.Lines {
		if f.qualifies(line) {
			qualifying++
		}
	}
	if qualifying == 0 {
		return model.RejectNoLines, "no lines survive CFOP filters"
	}
	return "", ""
}

// merge folds one accepted invoice into the keyed rows. Rows are keyed by
// the reference CNPJ the import is scoped to, not the emitter: an invoice
// can qualify because the audited establishment is its receiver, and a row
// keyed outside the scope would survive the store's scoped replace.
func (b *Builder) merge(inv *model.ExternalInvoice, f Filters) {
	date := inv.EmissionDate.UTC().Truncate(24 * time.Hour)
	counted := make(map[model.ExternalAggregateKey]bool)

	cnpj := f.CNPJ
	if cnpj == "" {
		cnpj = inv.EmitterCNPJ
	}

	for _, line := range inv.Lines {
		if !f.qualifies(line) {
			continue
		}
		key := model.ExternalAggregateKey{
			CNPJ:  cnpj,
			Date:  date,
			CFOP:  line.CFOP,
			Model: inv.Model,
		}
		row, ok := b.rows[key]
		if !ok {
			row = &model.ExternalAggregateRow{ExternalAggregateKey: key}
			b.rows[key] = row
		}
		row.Value = row.Value.Add(line.Value)
		if !counted[key] {
			row.Invoices++
			counted[key] = true
		}
	}
}

// Rows returns the aggregate rows sorted by (CNPJ, date, CFOP, model) so
// output never depends on map iteration order.
func (b *Builder) Rows() []model.ExternalAggregateRow {
	out := make([]model.ExternalAggregateRow, 0, len(b.rows))
	for _, r := range b.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CNPJ != out[j].CNPJ {
			return out[i].CNPJ < out[j].CNPJ
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].CFOP != out[j].CFOP {
			return out[i].CFOP < out[j].CFOP
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Accepted returns the invoices accepted so far, in import order. Only
// these are persisted: a rejected invoice must stay invisible to dedup so
// a corrected re-import can still accept it.
func (b *Builder) Accepted() []model.ExternalInvoice {
	return b.accepted
}

// SeenKeys returns every access key the builder knows about, sorted.
func (b *Builder) SeenKeys() []string {
	keys := make([]string, 0, len(b.seen))
	for k := range b.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
