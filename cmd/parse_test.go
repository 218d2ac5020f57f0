package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/store"
)

func sampleLedger() *model.Ledger {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	return &model.Ledger{
		ID:          "abc12345-6789-0000-0000-000000000000",
		CompanyName: "POSTO EXEMPLO LTDA",
		CNPJ:        "12345678000190",
		FileName:    "efd-jan.txt",
		PeriodStart: &start,
		PeriodEnd:   &end,
		Outbound:    make([]model.Document, 3),
		Inbound:     make([]model.Document, 1),
		Stats:       model.ParseStats{Lines: 42, Records: 40, UnknownRecords: 2},
	}
}

func TestWriteParseSummary_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeParseSummary(&buf, sampleLedger(), true, "table"))

	output := buf.String()
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "efd-jan.txt")
	assert.Contains(t, output, "POSTO EXEMPLO LTDA")
	assert.Contains(t, output, "2024-01-01 .. 2024-01-31")
	assert.Contains(t, output, "3 documents")
	assert.Contains(t, output, "2 unknown records")
	assert.Contains(t, output, "Saved.")
}

func TestWriteParseSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeParseSummary(&buf, sampleLedger(), false, "json"))

	var s parseSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
	assert.Equal(t, "efd-jan.txt", s.FileName)
	assert.Equal(t, 3, s.Outbound)
	assert.Equal(t, 1, s.Inbound)
	assert.False(t, s.Saved)
}

func TestWriteParseSummary_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeParseSummary(&buf, sampleLedger(), false, "yaml"))

	assert.Contains(t, buf.String(), "file_name: efd-jan.txt")
}

func TestWriteParseSummary_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeParseSummary(&buf, sampleLedger(), false, "csv"))
}

func newCmdTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestResolveLedger_ByPrefix(t *testing.T) {
	ctx := context.Background()
	st := newCmdTestStore(t)

	ledger := sampleLedger()
	ledger.ID = ""
	require.NoError(t, st.SaveLedger(ctx, ledger, aggregate.Projection{}))

	sum, err := resolveLedger(ctx, st, ledger.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, ledger.ID, sum.ID)

	sum, err = resolveLedger(ctx, st, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID, sum.ID)
}

func TestResolveLedger_NotFound(t *testing.T) {
	ctx := context.Background()
	st := newCmdTestStore(t)

	_, err := resolveLedger(ctx, st, "deadbeef")
	assert.ErrorIs(t, err, store.ErrLedgerNotFound)
}
