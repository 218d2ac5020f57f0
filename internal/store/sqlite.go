package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ledgers (
	id             TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL DEFAULT '',
	cnpj           TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL DEFAULT '',
	declared_start TEXT,
	declared_end   TEXT,
	period_start   TEXT,
	period_end     TEXT,
	products       TEXT NOT NULL DEFAULT '[]',
	fuel_daily     TEXT NOT NULL DEFAULT '[]',
	fuel_tanks     TEXT NOT NULL DEFAULT '[]',
	fuel_pumps     TEXT NOT NULL DEFAULT '[]',
	stats          TEXT NOT NULL DEFAULT '{}',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS documents (
	id        TEXT PRIMARY KEY,
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	direction TEXT NOT NULL,
	doc       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS aggregates (
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	kind      TEXT NOT NULL,
	direction TEXT NOT NULL,
	date      TEXT,
	cfop      TEXT,
	value     TEXT NOT NULL,
	items     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS invoices (
	access_key    TEXT PRIMARY KEY,
	emitter_cnpj  TEXT NOT NULL,
	emission_date TEXT,
	status        TEXT NOT NULL,
	invoice       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS external_aggregate (
	cnpj     TEXT NOT NULL,
	date     TEXT NOT NULL,
	cfop     TEXT NOT NULL,
	model    TEXT NOT NULL,
	value    TEXT NOT NULL,
	invoices INTEGER NOT NULL,
	PRIMARY KEY (cnpj, date, cfop, model)
);

CREATE TABLE IF NOT EXISTS inconsistencies (
	id        TEXT PRIMARY KEY,
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	type      TEXT NOT NULL,
	severity  TEXT NOT NULL,
	finding   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledgers_cnpj ON ledgers(cnpj);
CREATE INDEX IF NOT EXISTS idx_documents_ledger_id ON documents(ledger_id);
CREATE INDEX IF NOT EXISTS idx_aggregates_ledger_id ON aggregates(ledger_id);
CREATE INDEX IF NOT EXISTS idx_invoices_emitter_cnpj ON invoices(emitter_cnpj);
CREATE INDEX IF NOT EXISTS idx_inconsistencies_ledger_id ON inconsistencies(ledger_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveLedger(ctx context.Context, ledger *model.Ledger, proj aggregate.Projection) error {
	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}
	if ledger.CreatedAt.IsZero() {
		ledger.CreatedAt = time.Now().UTC()
	}

	products, err := json.Marshal(ledger.Products)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal products")
	}
	fuelDaily, err := json.Marshal(ledger.FuelDaily)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fuel daily")
	}
	fuelTanks, err := json.Marshal(ledger.FuelTanks)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fuel tanks")
	}
	fuelPumps, err := json.Marshal(ledger.FuelPumps)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fuel pumps")
	}
	stats, err := json.Marshal(ledger.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save ledger")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledgers
			(id, company_name, cnpj, file_name, declared_start, declared_end,
			 period_start, period_end, products, fuel_daily, fuel_tanks,
			 fuel_pumps, stats, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name,
			cnpj = excluded.cnpj,
			file_name = excluded.file_name,
			declared_start = excluded.declared_start,
			declared_end = excluded.declared_end,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			products = excluded.products,
			fuel_daily = excluded.fuel_daily,
			fuel_tanks = excluded.fuel_tanks,
			fuel_pumps = excluded.fuel_pumps,
			stats = excluded.stats`,
		ledger.ID, ledger.CompanyName, ledger.CNPJ, ledger.FileName,
		formatDate(ledger.DeclaredStart), formatDate(ledger.DeclaredEnd),
		formatDate(ledger.PeriodStart), formatDate(ledger.PeriodEnd),
		string(products), string(fuelDaily), string(fuelTanks),
		string(fuelPumps), string(stats), ledger.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert ledger")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE ledger_id = ?`, ledger.ID); err != nil {
		return eris.Wrap(err, "sqlite: clear documents")
	}
	insertDoc, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, ledger_id, direction, doc) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert document")
	}
	defer insertDoc.Close()

	for _, doc := range ledger.Documents() {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.LedgerID = ledger.ID
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal document %s", doc.Identity())
		}
		if _, err := insertDoc.ExecContext(ctx, doc.ID, ledger.ID, string(doc.Direction), string(docJSON)); err != nil {
			return eris.Wrapf(err, "sqlite: insert document %s", doc.Identity())
		}
	}

	if err := replaceAggregatesTx(ctx, tx, ledger.ID, proj); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save ledger")
}

func (s *SQLiteStore) GetLedger(ctx context.Context, ledgerID string) (*LedgerSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT l.id, l.company_name, l.cnpj, l.file_name, l.period_start, l.period_end,
		        (SELECT COUNT(*) FROM documents d WHERE d.ledger_id = l.id), l.created_at
		 FROM ledgers l WHERE l.id = ?`,
		ledgerID,
	)
	sum, err := scanLedgerSummary(row)
	if err == sql.ErrNoRows {
		return nil, ErrLedgerNotFound
	}
	return sum, err
}

func (s *SQLiteStore) ListLedgers(ctx context.Context, filter LedgerFilter) ([]LedgerSummary, error) {
	query := `SELECT l.id, l.company_name, l.cnpj, l.file_name, l.period_start, l.period_end,
	                 (SELECT COUNT(*) FROM documents d WHERE d.ledger_id = l.id), l.created_at
	          FROM ledgers l WHERE 1=1`
	var args []any

	if filter.CNPJ != "" {
		query += ` AND l.cnpj = ?`
		args = append(args, filter.CNPJ)
	}
	query += ` ORDER BY l.created_at DESC, l.id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ledgers")
	}
	defer rows.Close()

	var out []LedgerSummary
	for rows.Next() {
		sum, err := scanLedgerSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ledgers iterate")
}

func (s *SQLiteStore) LoadLedger(ctx context.Context, ledgerID string) (*model.Ledger, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company_name, cnpj, file_name, declared_start, declared_end,
		        period_start, period_end, products, fuel_daily, fuel_tanks,
		        fuel_pumps, stats, created_at
		 FROM ledgers WHERE id = ?`,
		ledgerID,
	)

	var l model.Ledger
	var declStart, declEnd, perStart, perEnd sql.NullString
	var products, fuelDaily, fuelTanks, fuelPumps, stats string
	err := row.Scan(&l.ID, &l.CompanyName, &l.CNPJ, &l.FileName,
		&declStart, &declEnd, &perStart, &perEnd,
		&products, &fuelDaily, &fuelTanks, &fuelPumps, &stats, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load ledger")
	}

	if l.DeclaredStart, err = parseDate(declStart.String); err != nil {
		return nil, err
	}
	if l.DeclaredEnd, err = parseDate(declEnd.String); err != nil {
		return nil, err
	}
	if l.PeriodStart, err = parseDate(perStart.String); err != nil {
		return nil, err
	}
	if l.PeriodEnd, err = parseDate(perEnd.String); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(products), &l.Products); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal products")
	}
	if err := json.Unmarshal([]byte(fuelDaily), &l.FuelDaily); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fuel daily")
	}
	if err := json.Unmarshal([]byte(fuelTanks), &l.FuelTanks); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fuel tanks")
	}
	if err := json.Unmarshal([]byte(fuelPumps), &l.FuelPumps); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fuel pumps")
	}
	if err := json.Unmarshal([]byte(stats), &l.Stats); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stats")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM documents WHERE ledger_id = ? ORDER BY id`, ledgerID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load documents")
	}
	defer rows.Close()

	for rows.Next() {
		var docJSON string
		if err := rows.Scan(&docJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		var doc model.Document
		if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal document")
		}
		switch doc.Direction {
		case model.DirectionInbound:
			l.Inbound = append(l.Inbound, doc)
		case model.DirectionOutbound:
			l.Outbound = append(l.Outbound, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load documents iterate")
	}
	return &l, nil
}

func (s *SQLiteStore) DeleteLedger(ctx context.Context, ledgerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete ledger")
	}
	defer tx.Rollback() //nolint:errcheck

	// foreign_keys is a per-connection pragma and database/sql pools
	// connections, so child rows are removed explicitly.
	for _, table := range []string{"documents", "aggregates", "inconsistencies"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE ledger_id = ?`, ledgerID); err != nil {
			return eris.Wrapf(err, "sqlite: delete ledger %s from %s", ledgerID, table)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM ledgers WHERE id = ?`, ledgerID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete ledger %s", ledgerID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrLedgerNotFound
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete ledger")
}

func (s *SQLiteStore) GetAggregates(ctx context.Context, ledgerID string) (aggregate.Projection, error) {
	var proj aggregate.Projection

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, direction, date, cfop, value, items FROM aggregates
		 WHERE ledger_id = ?
		 ORDER BY kind, direction, date, cfop`,
		ledgerID,
	)
	if err != nil {
		return proj, eris.Wrap(err, "sqlite: get aggregates")
	}
	defer rows.Close()

	for rows.Next() {
		var kind, direction, value string
		var date, cfop sql.NullString
		var items int
		if err := rows.Scan(&kind, &direction, &date, &cfop, &value, &items); err != nil {
			return proj, eris.Wrap(err, "sqlite: scan aggregate")
		}
		dec, err := decimal.NewFromString(value)
		if err != nil {
			return proj, eris.Wrapf(err, "sqlite: aggregate value %q", value)
		}
		var day *time.Time
		if date.Valid {
			day, err = parseDate(date.String)
			if err != nil {
				return proj, err
			}
		}
		dir := model.Direction(direction)
		switch kind {
		case aggKindDay:
			proj.Days = append(proj.Days, model.DayAggregate{Direction: dir, Date: *day, Value: dec, Items: items})
		case aggKindCode:
			proj.Codes = append(proj.Codes, model.CodeAggregate{Direction: dir, CFOP: cfop.String, Value: dec, Items: items})
		case aggKindDayCode:
			proj.DayCodes = append(proj.DayCodes, model.DayCodeAggregate{Direction: dir, Date: *day, CFOP: cfop.String, Value: dec, Items: items})
		}
	}
	if err := rows.Err(); err != nil {
		return proj, eris.Wrap(err, "sqlite: get aggregates iterate")
	}
	proj.Sort()
	return proj, nil
}

func (s *SQLiteStore) ReplaceAggregates(ctx context.Context, ledgerID string, proj aggregate.Projection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace aggregates")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := replaceAggregatesTx(ctx, tx, ledgerID, proj); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace aggregates")
}

const (
	aggKindDay     = "day"
	aggKindCode    = "code"
	aggKindDayCode = "day_code"
)

func replaceAggregatesTx(ctx context.Context, tx *sql.Tx, ledgerID string, proj aggregate.Projection) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM aggregates WHERE ledger_id = ?`, ledgerID); err != nil {
		return eris.Wrap(err, "sqlite: clear aggregates")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO aggregates (ledger_id, kind, direction, date, cfop, value, items)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert aggregate")
	}
	defer stmt.Close()

	for _, a := range proj.Days {
		d := a.Date
		if _, err := stmt.ExecContext(ctx, ledgerID, aggKindDay, string(a.Direction),
			formatDate(&d), nil, a.Value.String(), a.Items); err != nil {
			return eris.Wrap(err, "sqlite: insert day aggregate")
		}
	}
	for _, a := range proj.Codes {
		if _, err := stmt.ExecContext(ctx, ledgerID, aggKindCode, string(a.Direction),
			nil, a.CFOP, a.Value.String(), a.Items); err != nil {
			return eris.Wrap(err, "sqlite: insert code aggregate")
		}
	}
	for _, a := range proj.DayCodes {
		d := a.Date
		if _, err := stmt.ExecContext(ctx, ledgerID, aggKindDayCode, string(a.Direction),
			formatDate(&d), a.CFOP, a.Value.String(), a.Items); err != nil {
			return eris.Wrap(err, "sqlite: insert day-code aggregate")
		}
	}
	return nil
}

func (s *SQLiteStore) SaveInvoices(ctx context.Context, invoices []model.ExternalInvoice) error {
	if len(invoices) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save invoices")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO invoices (access_key, emitter_cnpj, emission_date, status, invoice)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(access_key) DO NOTHING`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert invoice")
	}
	defer stmt.Close()

	for _, inv := range invoices {
		invJSON, err := json.Marshal(inv)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal invoice %s", inv.AccessKey)
		}
		if _, err := stmt.ExecContext(ctx, inv.AccessKey, inv.EmitterCNPJ,
			formatDate(inv.EmissionDate), string(inv.Status), string(invJSON)); err != nil {
			return eris.Wrapf(err, "sqlite: insert invoice %s", inv.AccessKey)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save invoices")
}

func (s *SQLiteStore) ListInvoices(ctx context.Context, cnpj string) ([]model.ExternalInvoice, error) {
	query := `SELECT invoice FROM invoices`
	var args []any
	if cnpj != "" {
		query += ` WHERE emitter_cnpj = ?`
		args = append(args, cnpj)
	}
	query += ` ORDER BY access_key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list invoices")
	}
	defer rows.Close()

	var out []model.ExternalInvoice
	for rows.Next() {
		var invJSON string
		if err := rows.Scan(&invJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan invoice")
		}
		var inv model.ExternalInvoice
		if err := json.Unmarshal([]byte(invJSON), &inv); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal invoice")
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list invoices iterate")
}

func (s *SQLiteStore) SeenAccessKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT access_key FROM invoices`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: seen access keys")
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan access key")
		}
		seen[key] = struct{}{}
	}
	return seen, eris.Wrap(rows.Err(), "sqlite: seen access keys iterate")
}

func (s *SQLiteStore) GetExternalAggregate(ctx context.Context, cnpj string) ([]model.ExternalAggregateRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cnpj, date, cfop, model, value, invoices FROM external_aggregate
		 WHERE cnpj = ?
		 ORDER BY date, cfop, model`,
		cnpj,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get external aggregate")
	}
	defer rows.Close()

	var out []model.ExternalAggregateRow
	for rows.Next() {
		var r model.ExternalAggregateRow
		var date, value string
		if err := rows.Scan(&r.CNPJ, &date, &r.CFOP, &r.Model, &value, &r.Invoices); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan external aggregate")
		}
		t, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		r.Date = *t
		r.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: external aggregate value %q", value)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get external aggregate iterate")
}

func (s *SQLiteStore) ReplaceExternalAggregate(ctx context.Context, cnpj string, rows []model.ExternalAggregateRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace external aggregate")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM external_aggregate WHERE cnpj = ?`, cnpj); err != nil {
		return eris.Wrap(err, "sqlite: clear external aggregate")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO external_aggregate (cnpj, date, cfop, model, value, invoices)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert external aggregate")
	}
	defer stmt.Close()

	for _, r := range rows {
		d := r.Date
		if _, err := stmt.ExecContext(ctx, r.CNPJ, formatDate(&d), r.CFOP, r.Model,
			r.Value.String(), r.Invoices); err != nil {
			return eris.Wrap(err, "sqlite: insert external aggregate")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace external aggregate")
}

func (s *SQLiteStore) ReplaceInconsistencies(ctx context.Context, ledgerID string, findings []model.Inconsistency) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace inconsistencies")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM inconsistencies WHERE ledger_id = ?`, ledgerID); err != nil {
		return eris.Wrap(err, "sqlite: clear inconsistencies")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO inconsistencies (id, ledger_id, type, severity, finding)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert inconsistency")
	}
	defer stmt.Close()

	for i := range findings {
		f := &findings[i]
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.LedgerID = ledgerID
		fJSON, err := json.Marshal(f)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal inconsistency")
		}
		if _, err := stmt.ExecContext(ctx, f.ID, ledgerID, string(f.Type), string(f.Severity), string(fJSON)); err != nil {
			return eris.Wrap(err, "sqlite: insert inconsistency")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace inconsistencies")
}

func (s *SQLiteStore) ListInconsistencies(ctx context.Context, ledgerID string) ([]model.Inconsistency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT finding FROM inconsistencies WHERE ledger_id = ? ORDER BY severity, type, id`,
		ledgerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list inconsistencies")
	}
	defer rows.Close()

	var out []model.Inconsistency
	for rows.Next() {
		var fJSON string
		if err := rows.Scan(&fJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan inconsistency")
		}
		var f model.Inconsistency
		if err := json.Unmarshal([]byte(fJSON), &f); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal inconsistency")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list inconsistencies iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanLedgerSummary(row scannable) (*LedgerSummary, error) {
	var sum LedgerSummary
	var perStart, perEnd sql.NullString

	err := row.Scan(&sum.ID, &sum.CompanyName, &sum.CNPJ, &sum.FileName,
		&perStart, &perEnd, &sum.Documents, &sum.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan ledger summary")
	}

	if sum.PeriodStart, err = parseDate(perStart.String); err != nil {
		return nil, err
	}
	if sum.PeriodEnd, err = parseDate(perEnd.String); err != nil {
		return nil, err
	}
	return &sum, nil
}
