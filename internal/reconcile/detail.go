package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/auditware/fiscal-cli/internal/model"
)

// DetailOptions configures an invoice-level drill-down.
type DetailOptions struct {
	CNPJ   string
	Models map[string]bool // nil = DefaultOutboundModels
}

// Detail drills one (date, CFOP) cell down to invoice identities: ledger
// items grouped by access key (falling back to document number, then the
// synthetic document id), external invoices grouped by access key. Entries
// come back sorted by |diff| descending.
//
// Resolving the ledger itself is the caller's responsibility; an
// unresolvable ledger id is a fatal error at that boundary, not here.
func Detail(outbound []model.Document, invoices []model.ExternalInvoice, date time.Time, cfop string, opts DetailOptions) model.DivergenceDetail {
	if opts.Models == nil {
		opts.Models = DefaultOutboundModels()
	}
	day := date.UTC().Truncate(24 * time.Hour)

	ledger := make(map[string]decimal.Decimal)
	for i := range outbound {
		doc := &outbound[i]
		if doc.DocumentDate == nil || !doc.DocumentDate.UTC().Truncate(24*time.Hour).Equal(day) {
			continue
		}
		for _, it := range doc.Items {
			if it.CFOP != cfop {
				continue
			}
			key := doc.Identity()
			ledger[key] = ledger[key].Add(it.OperationValue)
		}
	}

	external := make(map[string]decimal.Decimal)
	for i := range invoices {
		inv := &invoices[i]
		if inv.EmissionDate == nil || !inv.EmissionDate.UTC().Truncate(24*time.Hour).Equal(day) {
			continue
		}
		if !opts.Models[inv.Model] {
			continue
		}
		if opts.CNPJ != "" && inv.EmitterCNPJ != opts.CNPJ {
			continue
		}
		var sum decimal.Decimal
		matched := false
		for _, line := range inv.Lines {
			if line.CFOP == cfop {
				sum = sum.Add(line.Value)
				matched = true
			}
		}
		if !matched {
			continue
		}
		external[inv.AccessKey] = external[inv.AccessKey].Add(sum)
	}

	det := model.DivergenceDetail{Date: day, CFOP: cfop}

	keys := make(map[string]bool, len(ledger)+len(external))
	for k := range ledger {
		keys[k] = true
	}
	for k := range external {
		keys[k] = true
	}

	for k := range keys {
		ledVal, inLedger := ledger[k]
		extVal, inExternal := external[k]

		status := model.MatchBoth
		switch {
		case inLedger && !inExternal:
			status = model.MatchOnlyLedger
		case inExternal && !inLedger:
			status = model.MatchOnlyExternal
		}

		det.Entries = append(det.Entries, model.InvoiceDivergence{
			Key:      k,
			Status:   status,
			External: extVal,
			Ledger:   ledVal,
			Diff:     extVal.Sub(ledVal),
		})
		det.TotalLedger = det.TotalLedger.Add(ledVal)
		det.TotalExternal = det.TotalExternal.Add(extVal)
	}

	det.DiffAbs = det.TotalExternal.Sub(det.TotalLedger)

	sort.Slice(det.Entries, func(i, j int) bool {
		di, dj := det.Entries[i].Diff.Abs(), det.Entries[j].Diff.Abs()
		if !di.Equal(dj) {
			return di.GreaterThan(dj)
		}
		return det.Entries[i].Key < det.Entries[j].Key
	})

	return det
}
