package reconcile

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditware/fiscal-cli/internal/model"
)

func docFor(identityKey string, d int, cfop string, value float64) model.Document {
	date := day(d)
	return model.Document{
		ID:           "synthetic-" + identityKey,
		Direction:    model.DirectionOutbound,
		Status:       model.StatusNormal,
		AccessKey:    identityKey,
		DocumentDate: &date,
		TotalValue:   dec(value),
		Items: []model.Item{
			{CFOP: cfop, OperationValue: dec(value)},
		},
	}
}

func extInvoice(accessKey string, d int, cfop string, value float64) model.ExternalInvoice {
	date := day(d)
	return model.ExternalInvoice{
		AccessKey:    accessKey,
		Model:        "55",
		EmissionDate: &date,
		EmitterCNPJ:  "12345678000195",
		Status:       model.InvoiceAuthorized,
		Lines: []model.InvoiceLine{
			{CFOP: cfop, Value: dec(value)},
		},
	}
}

func TestDetail_Classification(t *testing.T) {
	k1 := strings.Repeat("1", 44)
	k2 := strings.Repeat("2", 44)

	outbound := []model.Document{docFor(k1, 5, "5102", 100)}
	invoices := []model.ExternalInvoice{
		extInvoice(k1, 5, "5102", 120),
		extInvoice(k2, 5, "5102", 50),
	}

	det := Detail(outbound, invoices, day(5), "5102", DetailOptions{})

	assert.True(t, dec(100).Equal(det.TotalLedger))
	assert.True(t, dec(170).Equal(det.TotalExternal))
	assert.True(t, dec(70).Equal(det.DiffAbs))

	require.Len(t, det.Entries, 2)

	// Sorted by |diff| descending: K2 (50) before K1 (20).
	assert.Equal(t, k2, det.Entries[0].Key)
	assert.Equal(t, model.MatchOnlyExternal, det.Entries[0].Status)
	assert.True(t, dec(50).Equal(det.Entries[0].Diff))

	assert.Equal(t, k1, det.Entries[1].Key)
	assert.Equal(t, model.MatchBoth, det.Entries[1].Status)
	assert.True(t, dec(20).Equal(det.Entries[1].Diff))
}

func TestDetail_OnlyLedger(t *testing.T) {
	outbound := []model.Document{docFor(strings.Repeat("3", 44), 5, "5102", 80)}

	det := Detail(outbound, nil, day(5), "5102", DetailOptions{})

	require.Len(t, det.Entries, 1)
	assert.Equal(t, model.MatchOnlyLedger, det.Entries[0].Status)
	assert.True(t, dec(-80).Equal(det.Entries[0].Diff))
}

func TestDetail_IdentityFallback(t *testing.T) {
	// No access key: identity falls back to the document number.
	date := day(5)
	doc := model.Document{
		ID:           "uuid-1",
		Direction:    model.DirectionOutbound,
		Status:       model.StatusNormal,
		Number:       "000123",
		DocumentDate: &date,
		TotalValue:   dec(10),
		Items:        []model.Item{{CFOP: "5102", OperationValue: dec(10)}},
	}

	det := Detail([]model.Document{doc}, nil, day(5), "5102", DetailOptions{})
	require.Len(t, det.Entries, 1)
	assert.Equal(t, "000123", det.Entries[0].Key)

	// Neither key nor number: the synthetic per-document id.
	doc.Number = ""
	det = Detail([]model.Document{doc}, nil, day(5), "5102", DetailOptions{})
	require.Len(t, det.Entries, 1)
	assert.Equal(t, "uuid-1", det.Entries[0].Key)
}

func TestDetail_FiltersCellOnly(t *testing.T) {
	k1 := strings.Repeat("1", 44)
	outbound := []model.Document{
		docFor(k1, 5, "5102", 100),
		docFor(strings.Repeat("4", 44), 6, "5102", 999), // wrong date
		docFor(strings.Repeat("5", 44), 5, "5405", 999), // wrong CFOP
	}
	invoices := []model.ExternalInvoice{
		extInvoice(k1, 5, "5102", 100),
		extInvoice(strings.Repeat("6", 44), 5, "5405", 999),
	}

	det := Detail(outbound, invoices, day(5), "5102", DetailOptions{})

	require.Len(t, det.Entries, 1)
	assert.Equal(t, k1, det.Entries[0].Key)
	assert.Equal(t, model.MatchBoth, det.Entries[0].Status)
	assert.True(t, det.Entries[0].Diff.IsZero())
}

func TestDetail_MultiLineInvoiceSumsPerKey(t *testing.T) {
	k1 := strings.Repeat("1", 44)
	inv := extInvoice(k1, 5, "5102", 60)
	inv.Lines = append(inv.Lines,
		model.InvoiceLine{CFOP: "5102", Value: decimal.NewFromInt(40)},
		model.InvoiceLine{CFOP: "5405", Value: decimal.NewFromInt(999)},
	)

	det := Detail(nil, []model.ExternalInvoice{inv}, day(5), "5102", DetailOptions{})

	require.Len(t, det.Entries, 1)
	assert.True(t, dec(100).Equal(det.Entries[0].External))
}
