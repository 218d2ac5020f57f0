package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testLedger() *model.Ledger {
	return &model.Ledger{
		CompanyName: "POSTO EXEMPLO LTDA",
		CNPJ:        "12345678000190",
		FileName:    "efd-jan.txt",
		PeriodStart: date(2024, time.January, 5),
		PeriodEnd:   date(2024, time.January, 28),
		Outbound: []model.Document{
			{
				Direction:    model.DirectionOutbound,
				Number:       "123",
				AccessKey:    "35240112345678000190550010000001231000000010",
				DocumentDate: date(2024, time.January, 5),
				TotalValue:   decimal.NewFromInt(1500),
				Status:       model.StatusNormal,
				Items: []model.Item{
					{CST: "000", CFOP: "5656", OperationValue: decimal.NewFromInt(1500)},
				},
			},
		},
		Inbound: []model.Document{
			{
				Direction:    model.DirectionInbound,
				Number:       "77",
				DocumentDate: date(2024, time.January, 10),
				TotalValue:   decimal.NewFromInt(800),
				Status:       model.StatusNormal,
			},
		},
		Products: []model.FuelProduct{
			{Code: "GC", Description: "GASOLINA COMUM", Unit: "LT"},
		},
		FuelDaily: []model.FuelDailyMovement{
			{ProductCode: "GC", Date: date(2024, time.January, 5), Opening: 10000, Sold: 4500},
		},
		Stats: model.ParseStats{Lines: 42, Records: 40},
	}
}

func testProjection() aggregate.Projection {
	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	return aggregate.Projection{
		Days: []model.DayAggregate{
			{Direction: model.DirectionOutbound, Date: day, Value: decimal.NewFromInt(1500), Items: 1},
		},
		Codes: []model.CodeAggregate{
			{Direction: model.DirectionOutbound, CFOP: "5656", Value: decimal.NewFromInt(1500), Items: 1},
		},
		DayCodes: []model.DayCodeAggregate{
			{Direction: model.DirectionOutbound, Date: day, CFOP: "5656", Value: decimal.NewFromInt(1500), Items: 1},
		},
	}
}

// --- Ledgers ---

func TestSQLite_SaveLedger_And_LoadLedger(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))
	assert.NotEmpty(t, ledger.ID)

	loaded, err := st.LoadLedger(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, "POSTO EXEMPLO LTDA", loaded.CompanyName)
	assert.Equal(t, "12345678000190", loaded.CNPJ)
	require.NotNil(t, loaded.PeriodStart)
	assert.Equal(t, *ledger.PeriodStart, *loaded.PeriodStart)

	require.Len(t, loaded.Outbound, 1)
	require.Len(t, loaded.Inbound, 1)
	out := loaded.Outbound[0]
	assert.Equal(t, "123", out.Number)
	assert.True(t, out.TotalValue.Equal(decimal.NewFromInt(1500)))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "5656", out.Items[0].CFOP)
	assert.Equal(t, ledger.ID, out.LedgerID)

	require.Len(t, loaded.Products, 1)
	assert.Equal(t, "GASOLINA COMUM", loaded.Products[0].Description)
	require.Len(t, loaded.FuelDaily, 1)
	assert.Equal(t, 4500.0, loaded.FuelDaily[0].Sold)
	assert.Equal(t, 42, loaded.Stats.Lines)
}

func TestSQLite_GetLedger_Summary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))

	sum, err := st.GetLedger(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID, sum.ID)
	assert.Equal(t, "POSTO EXEMPLO LTDA", sum.CompanyName)
	assert.Equal(t, 2, sum.Documents)
	require.NotNil(t, sum.PeriodEnd)
	assert.Equal(t, *ledger.PeriodEnd, *sum.PeriodEnd)
}

func TestSQLite_GetLedger_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetLedger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	_, err = st.LoadLedger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}

func TestSQLite_SaveLedger_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))

	ledger.CompanyName = "POSTO RENOMEADO LTDA"
	ledger.Inbound = nil
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))

	sum, err := st.GetLedger(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, "POSTO RENOMEADO LTDA", sum.CompanyName)
	assert.Equal(t, 1, sum.Documents) // inbound row replaced away
}

func TestSQLite_ListLedgers_FilterByCNPJ(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testLedger()
	require.NoError(t, st.SaveLedger(ctx, a, aggregate.Projection{}))

	b := testLedger()
	b.ID = ""
	b.CNPJ = "99887766000155"
	require.NoError(t, st.SaveLedger(ctx, b, aggregate.Projection{}))

	all, err := st.ListLedgers(ctx, LedgerFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := st.ListLedgers(ctx, LedgerFilter{CNPJ: "99887766000155", Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, b.ID, filtered[0].ID)
}

func TestSQLite_DeleteLedger_Cascades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))
	require.NoError(t, st.ReplaceInconsistencies(ctx, ledger.ID, []model.Inconsistency{
		{Type: model.TankSumMismatch, Severity: model.SeverityWarning, Description: "x"},
	}))

	require.NoError(t, st.DeleteLedger(ctx, ledger.ID))

	_, err := st.GetLedger(ctx, ledger.ID)
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	proj, err := st.GetAggregates(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Empty(t, proj.Days)

	findings, err := st.ListInconsistencies(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestSQLite_DeleteLedger_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.DeleteLedger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}

// --- Aggregates ---

func TestSQLite_Aggregates_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))

	proj, err := st.GetAggregates(ctx, ledger.ID)
	require.NoError(t, err)
	require.Len(t, proj.Days, 1)
	require.Len(t, proj.Codes, 1)
	require.Len(t, proj.DayCodes, 1)

	assert.Equal(t, model.DirectionOutbound, proj.DayCodes[0].Direction)
	assert.Equal(t, "5656", proj.DayCodes[0].CFOP)
	assert.True(t, proj.DayCodes[0].Value.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), proj.DayCodes[0].Date)
}

func TestSQLite_Aggregates_Ordering(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	d5 := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	d6 := time.Date(2024, time.January, 6, 0, 0, 0, 0, time.UTC)
	saved := aggregate.Projection{
		Days: []model.DayAggregate{
			{Direction: model.DirectionOutbound, Date: d6, Value: decimal.NewFromInt(900), Items: 1},
			{Direction: model.DirectionInbound, Date: d5, Value: decimal.NewFromInt(200), Items: 1},
			{Direction: model.DirectionOutbound, Date: d5, Value: decimal.NewFromInt(600), Items: 2},
		},
		Codes: []model.CodeAggregate{
			{Direction: model.DirectionInbound, CFOP: "1102", Value: decimal.NewFromInt(200), Items: 1},
			{Direction: model.DirectionOutbound, CFOP: "5656", Value: decimal.NewFromInt(1500), Items: 3},
			{Direction: model.DirectionOutbound, CFOP: "5102", Value: decimal.NewFromInt(1500), Items: 1},
		},
		DayCodes: []model.DayCodeAggregate{
			{Direction: model.DirectionOutbound, Date: d6, CFOP: "5102", Value: decimal.NewFromInt(900), Items: 1},
			{Direction: model.DirectionOutbound, Date: d5, CFOP: "5656", Value: decimal.NewFromInt(600), Items: 2},
			{Direction: model.DirectionInbound, Date: d5, CFOP: "1102", Value: decimal.NewFromInt(200), Items: 1},
		},
	}

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, saved))

	proj, err := st.GetAggregates(ctx, ledger.ID)
	require.NoError(t, err)

	// Days ascending by (date, direction).
	require.Len(t, proj.Days, 3)
	assert.Equal(t, d5, proj.Days[0].Date)
	assert.Equal(t, d5, proj.Days[1].Date)
	assert.Equal(t, d6, proj.Days[2].Date)
	assert.True(t, string(proj.Days[0].Direction) < string(proj.Days[1].Direction))

	// Codes descending by value, CFOP breaking the tie.
	require.Len(t, proj.Codes, 3)
	assert.Equal(t, "5102", proj.Codes[0].CFOP)
	assert.Equal(t, "5656", proj.Codes[1].CFOP)
	assert.Equal(t, "1102", proj.Codes[2].CFOP)

	// Day-codes ascending by (date, CFOP).
	require.Len(t, proj.DayCodes, 3)
	assert.Equal(t, "1102", proj.DayCodes[0].CFOP)
	assert.Equal(t, "5656", proj.DayCodes[1].CFOP)
	assert.Equal(t, d6, proj.DayCodes[2].Date)
}

func TestSQLite_ReplaceAggregates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, testProjection()))

	next := aggregate.Projection{
		Codes: []model.CodeAggregate{
			{Direction: model.DirectionInbound, CFOP: "1102", Value: decimal.NewFromInt(800), Items: 2},
		},
	}
	require.NoError(t, st.ReplaceAggregates(ctx, ledger.ID, next))

	proj, err := st.GetAggregates(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Empty(t, proj.Days)
	assert.Empty(t, proj.DayCodes)
	require.Len(t, proj.Codes, 1)
	assert.Equal(t, "1102", proj.Codes[0].CFOP)
	assert.Equal(t, 2, proj.Codes[0].Items)
}

// --- Invoices ---

func TestSQLite_SaveInvoices_And_SeenKeys(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	invoices := []model.ExternalInvoice{
		{
			AccessKey:    "35240112345678000190550010000000011000000017",
			Model:        "55",
			EmitterCNPJ:  "12345678000190",
			EmissionDate: date(2024, time.January, 5),
			Status:       model.InvoiceAuthorized,
			Lines: []model.InvoiceLine{
				{CFOP: "5656", Value: decimal.NewFromInt(200)},
			},
		},
		{
			AccessKey:   "35240112345678000190650010000000021000000028",
			Model:       "65",
			EmitterCNPJ: "12345678000190",
			Status:      model.InvoiceAuthorized,
		},
	}
	require.NoError(t, st.SaveInvoices(ctx, invoices))

	seen, err := st.SeenAccessKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Contains(t, seen, invoices[0].AccessKey)

	// Re-saving the same keys is a no-op, not an error.
	require.NoError(t, st.SaveInvoices(ctx, invoices[:1]))
	seen, err = st.SeenAccessKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestSQLite_ListInvoices_FilterByCNPJ(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveInvoices(ctx, []model.ExternalInvoice{
		{AccessKey: "k1", EmitterCNPJ: "111", Status: model.InvoiceAuthorized},
		{AccessKey: "k2", EmitterCNPJ: "222", Status: model.InvoiceCancelled},
	}))

	all, err := st.ListInvoices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := st.ListInvoices(ctx, "222")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "k2", only[0].AccessKey)
	assert.Equal(t, model.InvoiceCancelled, only[0].Status)
}

// --- External aggregate ---

func TestSQLite_ExternalAggregate_ReplaceAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cnpj := "12345678000190"
	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	rows := []model.ExternalAggregateRow{
		{
			ExternalAggregateKey: model.ExternalAggregateKey{CNPJ: cnpj, Date: day, CFOP: "5656", Model: "55"},
			Value:                decimal.RequireFromString("1234.56"),
			Invoices:             3,
		},
	}
	require.NoError(t, st.ReplaceExternalAggregate(ctx, cnpj, rows))

	got, err := st.GetExternalAggregate(ctx, cnpj)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5656", got[0].CFOP)
	assert.Equal(t, day, got[0].Date)
	assert.True(t, got[0].Value.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, 3, got[0].Invoices)

	// Replace is wholesale per CNPJ.
	require.NoError(t, st.ReplaceExternalAggregate(ctx, cnpj, nil))
	got, err = st.GetExternalAggregate(ctx, cnpj)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_ExternalAggregate_ScopedByCNPJ(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	row := func(cnpj string) []model.ExternalAggregateRow {
		return []model.ExternalAggregateRow{{
			ExternalAggregateKey: model.ExternalAggregateKey{CNPJ: cnpj, Date: day, CFOP: "5656", Model: "55"},
			Value:                decimal.NewFromInt(10),
			Invoices:             1,
		}}
	}
	require.NoError(t, st.ReplaceExternalAggregate(ctx, "111", row("111")))
	require.NoError(t, st.ReplaceExternalAggregate(ctx, "222", row("222")))

	// Replacing one CNPJ must not touch the other.
	require.NoError(t, st.ReplaceExternalAggregate(ctx, "111", nil))

	got, err := st.GetExternalAggregate(ctx, "222")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// --- Inconsistencies ---

func TestSQLite_Inconsistencies_ReplaceAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := testLedger()
	require.NoError(t, st.SaveLedger(ctx, ledger, aggregate.Projection{}))

	findings := []model.Inconsistency{
		{
			Type:        model.LossOverLimit,
			Severity:    model.SeverityCritical,
			ProductCode: "GC",
			Date:        date(2024, time.January, 5),
			Expected:    60,
			Found:       130,
			Description: "perda acima do limite legal",
			DetectedAt:  time.Now().UTC(),
		},
		{
			Type:        model.TankSumMismatch,
			Severity:    model.SeverityWarning,
			ProductCode: "GC",
			Description: "soma dos tanques diverge",
			DetectedAt:  time.Now().UTC(),
		},
	}
	require.NoError(t, st.ReplaceInconsistencies(ctx, ledger.ID, findings))

	got, err := st.ListInconsistencies(ctx, ledger.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, ledger.ID, f.LedgerID)
	}

	// A new analysis run replaces the prior set wholesale.
	require.NoError(t, st.ReplaceInconsistencies(ctx, ledger.ID, findings[:1]))
	got, err = st.ListInconsistencies(ctx, ledger.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.LossOverLimit, got[0].Type)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.Migrate(context.Background())
	require.NoError(t, err)
}
