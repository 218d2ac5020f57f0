package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/db"
	"github.com/auditware/fiscal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_ledger": `SELECT l.id, l.company_name, l.cnpj, l.file_name, l.period_start, l.period_end,
		(SELECT COUNT(*) FROM documents d WHERE d.ledger_id = l.id), l.created_at
		FROM ledgers l WHERE l.id = $1`,
	"load_documents": `SELECT doc FROM documents WHERE ledger_id = $1 ORDER BY id`,
	"get_aggregates": `SELECT kind, direction, date, cfop, value, items FROM aggregates
		WHERE ledger_id = $1 ORDER BY kind, direction, date, cfop`,
	"seen_access_keys": `SELECT access_key FROM invoices`,
	"get_external_aggregate": `SELECT cnpj, date, cfop, model, value, invoices FROM external_aggregate
		WHERE cnpj = $1 ORDER BY date, cfop, model`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ledgers (
	id             TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL DEFAULT '',
	cnpj           TEXT NOT NULL DEFAULT '',
	file_name      TEXT NOT NULL DEFAULT '',
	declared_start DATE,
	declared_end   DATE,
	period_start   DATE,
	period_end     DATE,
	products       JSONB NOT NULL DEFAULT '[]',
	fuel_daily     JSONB NOT NULL DEFAULT '[]',
	fuel_tanks     JSONB NOT NULL DEFAULT '[]',
	fuel_pumps     JSONB NOT NULL DEFAULT '[]',
	stats          JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id        TEXT PRIMARY KEY,
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	direction TEXT NOT NULL,
	doc       JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS aggregates (
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	kind      TEXT NOT NULL,
	direction TEXT NOT NULL,
	date      DATE,
	cfop      TEXT,
	value     NUMERIC(18,2) NOT NULL,
	items     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS invoices (
	access_key    TEXT PRIMARY KEY,
	emitter_cnpj  TEXT NOT NULL,
	emission_date DATE,
	status        TEXT NOT NULL,
	invoice       JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS external_aggregate (
	cnpj     TEXT NOT NULL,
	date     DATE NOT NULL,
	cfop     TEXT NOT NULL,
	model    TEXT NOT NULL,
	value    NUMERIC(18,2) NOT NULL,
	invoices INTEGER NOT NULL,
	PRIMARY KEY (cnpj, date, cfop, model)
);

CREATE TABLE IF NOT EXISTS inconsistencies (
	id        TEXT PRIMARY KEY,
	ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
	type      TEXT NOT NULL,
	severity  TEXT NOT NULL,
	finding   JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledgers_cnpj ON ledgers(cnpj);
CREATE INDEX IF NOT EXISTS idx_documents_ledger_id ON documents(ledger_id);
CREATE INDEX IF NOT EXISTS idx_aggregates_ledger_id ON aggregates(ledger_id);
CREATE INDEX IF NOT EXISTS idx_invoices_emitter_cnpj ON invoices(emitter_cnpj);
CREATE INDEX IF NOT EXISTS idx_inconsistencies_ledger_id ON inconsistencies(ledger_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveLedger(ctx context.Context, ledger *model.Ledger, proj aggregate.Projection) error {
	if ledger.ID == "" {
		ledger.ID = uuid.New().String()
	}
	if ledger.CreatedAt.IsZero() {
		ledger.CreatedAt = time.Now().UTC()
	}

	products, err := json.Marshal(ledger.Products)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal products")
	}
	fuelDaily, err := json.Marshal(ledger.FuelDaily)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fuel daily")
	}
	fuelTanks, err := json.Marshal(ledger.FuelTanks)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fuel tanks")
	}
	fuelPumps, err := json.Marshal(ledger.FuelPumps)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fuel pumps")
	}
	stats, err := json.Marshal(ledger.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save ledger")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO ledgers
			(id, company_name, cnpj, file_name, declared_start, declared_end,
			 period_start, period_end, products, fuel_daily, fuel_tanks,
			 fuel_pumps, stats, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			cnpj = EXCLUDED.cnpj,
			file_name = EXCLUDED.file_name,
			declared_start = EXCLUDED.declared_start,
			declared_end = EXCLUDED.declared_end,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			products = EXCLUDED.products,
			fuel_daily = EXCLUDED.fuel_daily,
			fuel_tanks = EXCLUDED.fuel_tanks,
			fuel_pumps = EXCLUDED.fuel_pumps,
			stats = EXCLUDED.stats`,
		ledger.ID, ledger.CompanyName, ledger.CNPJ, ledger.FileName,
		formatDate(ledger.DeclaredStart), formatDate(ledger.DeclaredEnd),
		formatDate(ledger.PeriodStart), formatDate(ledger.PeriodEnd),
		string(products), string(fuelDaily), string(fuelTanks),
		string(fuelPumps), string(stats), ledger.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: upsert ledger")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE ledger_id = $1`, ledger.ID); err != nil {
		return eris.Wrap(err, "postgres: clear documents")
	}

	docs := ledger.Documents()
	docRows := make([][]any, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		doc.LedgerID = ledger.ID
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal document %s", doc.Identity())
		}
		docRows = append(docRows, []any{doc.ID, ledger.ID, string(doc.Direction), string(docJSON)})
	}
	if len(docRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"documents"},
			[]string{"id", "ledger_id", "direction", "doc"},
			pgx.CopyFromRows(docRows)); err != nil {
			return eris.Wrap(err, "postgres: copy documents")
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM aggregates WHERE ledger_id = $1`, ledger.ID); err != nil {
		return eris.Wrap(err, "postgres: clear aggregates")
	}
	aggRows := projectionRows(ledger.ID, proj)
	if len(aggRows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"aggregates"},
			aggregateColumns, pgx.CopyFromRows(aggRows)); err != nil {
			return eris.Wrap(err, "postgres: copy aggregates")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save ledger")
}

var aggregateColumns = []string{"ledger_id", "kind", "direction", "date", "cfop", "value", "items"}

func projectionRows(ledgerID string, proj aggregate.Projection) [][]any {
	rows := make([][]any, 0, len(proj.Days)+len(proj.Codes)+len(proj.DayCodes))
	for _, a := range proj.Days {
		d := a.Date
		rows = append(rows, []any{ledgerID, aggKindDay, string(a.Direction), formatDate(&d), nil, a.Value.String(), a.Items})
	}
	for _, a := range proj.Codes {
		rows = append(rows, []any{ledgerID, aggKindCode, string(a.Direction), nil, a.CFOP, a.Value.String(), a.Items})
	}
	for _, a := range proj.DayCodes {
		d := a.Date
		rows = append(rows, []any{ledgerID, aggKindDayCode, string(a.Direction), formatDate(&d), a.CFOP, a.Value.String(), a.Items})
	}
	return rows
}

func (s *PostgresStore) GetLedger(ctx context.Context, ledgerID string) (*LedgerSummary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT l.id, l.company_name, l.cnpj, l.file_name, l.period_start, l.period_end,
		        (SELECT COUNT(*) FROM documents d WHERE d.ledger_id = l.id), l.created_at
		 FROM ledgers l WHERE l.id = $1`,
		ledgerID,
	)

	var sum LedgerSummary
	err := row.Scan(&sum.ID, &sum.CompanyName, &sum.CNPJ, &sum.FileName,
		&sum.PeriodStart, &sum.PeriodEnd, &sum.Documents, &sum.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get ledger")
	}
	return &sum, nil
}

func (s *PostgresStore) ListLedgers(ctx context.Context, filter LedgerFilter) ([]LedgerSummary, error) {
	query := `SELECT l.id, l.company_name, l.cnpj, l.file_name, l.period_start, l.period_end,
	                 (SELECT COUNT(*) FROM documents d WHERE d.ledger_id = l.id), l.created_at
	          FROM ledgers l WHERE 1=1`
	var args []any

	if filter.CNPJ != "" {
		args = append(args, filter.CNPJ)
		query += ` AND l.cnpj = $1`
	}
	query += ` ORDER BY l.created_at DESC, l.id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ledgers")
	}
	defer rows.Close()

	var out []LedgerSummary
	for rows.Next() {
		var sum LedgerSummary
		if err := rows.Scan(&sum.ID, &sum.CompanyName, &sum.CNPJ, &sum.FileName,
			&sum.PeriodStart, &sum.PeriodEnd, &sum.Documents, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ledger summary")
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ledgers iterate")
}

func (s *PostgresStore) LoadLedger(ctx context.Context, ledgerID string) (*model.Ledger, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, company_name, cnpj, file_name, declared_start, declared_end,
		        period_start, period_end, products, fuel_daily, fuel_tanks,
		        fuel_pumps, stats, created_at
		 FROM ledgers WHERE id = $1`,
		ledgerID,
	)

	var l model.Ledger
	var products, fuelDaily, fuelTanks, fuelPumps, stats []byte
	err := row.Scan(&l.ID, &l.CompanyName, &l.CNPJ, &l.FileName,
		&l.DeclaredStart, &l.DeclaredEnd, &l.PeriodStart, &l.PeriodEnd,
		&products, &fuelDaily, &fuelTanks, &fuelPumps, &stats, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLedgerNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load ledger")
	}

	if err := json.Unmarshal(products, &l.Products); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal products")
	}
	if err := json.Unmarshal(fuelDaily, &l.FuelDaily); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal fuel daily")
	}
	if err := json.Unmarshal(fuelTanks, &l.FuelTanks); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal fuel tanks")
	}
	if err := json.Unmarshal(fuelPumps, &l.FuelPumps); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal fuel pumps")
	}
	if err := json.Unmarshal(stats, &l.Stats); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stats")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM documents WHERE ledger_id = $1 ORDER BY id`, ledgerID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load documents")
	}
	defer rows.Close()

	for rows.Next() {
		var docJSON []byte
		if err := rows.Scan(&docJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		var doc model.Document
		if err := json.Unmarshal(docJSON, &doc); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal document")
		}
		switch doc.Direction {
		case model.DirectionInbound:
			l.Inbound = append(l.Inbound, doc)
		case model.DirectionOutbound:
			l.Outbound = append(l.Outbound, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load documents iterate")
	}
	return &l, nil
}

func (s *PostgresStore) DeleteLedger(ctx context.Context, ledgerID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ledgers WHERE id = $1`, ledgerID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete ledger %s", ledgerID)
	}
	if tag.RowsAffected() == 0 {
		return ErrLedgerNotFound
	}
	return nil
}

func (s *PostgresStore) GetAggregates(ctx context.Context, ledgerID string) (aggregate.Projection, error) {
	var proj aggregate.Projection

	rows, err := s.pool.Query(ctx,
		`SELECT kind, direction, date, cfop, value, items FROM aggregates
		 WHERE ledger_id = $1
		 ORDER BY kind, direction, date, cfop`,
		ledgerID,
	)
	if err != nil {
		return proj, eris.Wrap(err, "postgres: get aggregates")
	}
	defer rows.Close()

	for rows.Next() {
		var kind, direction string
		var date *time.Time
		var cfop *string
		var value decimal.Decimal
		var items int
		if err := rows.Scan(&kind, &direction, &date, &cfop, &value, &items); err != nil {
			return proj, eris.Wrap(err, "postgres: scan aggregate")
		}
		dir := model.Direction(direction)
		code := ""
		if cfop != nil {
			code = *cfop
		}
		switch kind {
		case aggKindDay:
			proj.Days = append(proj.Days, model.DayAggregate{Direction: dir, Date: date.UTC(), Value: value, Items: items})
		case aggKindCode:
			proj.Codes = append(proj.Codes, model.CodeAggregate{Direction: dir, CFOP: code, Value: value, Items: items})
		case aggKindDayCode:
			proj.DayCodes = append(proj.DayCodes, model.DayCodeAggregate{Direction: dir, Date: date.UTC(), CFOP: code, Value: value, Items: items})
		}
	}
	if err := rows.Err(); err != nil {
		return proj, eris.Wrap(err, "postgres: get aggregates iterate")
	}
	proj.Sort()
	return proj, nil
}

func (s *PostgresStore) ReplaceAggregates(ctx context.Context, ledgerID string, proj aggregate.Projection) error {
	return db.ReplaceScoped(ctx, s.pool, "aggregates", "ledger_id", ledgerID,
		aggregateColumns, projectionRows(ledgerID, proj))
}

func (s *PostgresStore) SaveInvoices(ctx context.Context, invoices []model.ExternalInvoice) error {
	if len(invoices) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save invoices")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, inv := range invoices {
		invJSON, err := json.Marshal(inv)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal invoice %s", inv.AccessKey)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO invoices (access_key, emitter_cnpj, emission_date, status, invoice)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (access_key) DO NOTHING`,
			inv.AccessKey, inv.EmitterCNPJ, formatDate(inv.EmissionDate),
			string(inv.Status), string(invJSON),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert invoice %s", inv.AccessKey)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save invoices")
}

func (s *PostgresStore) ListInvoices(ctx context.Context, cnpj string) ([]model.ExternalInvoice, error) {
	query := `SELECT invoice FROM invoices`
	var args []any
	if cnpj != "" {
		query += ` WHERE emitter_cnpj = $1`
		args = append(args, cnpj)
	}
	query += ` ORDER BY access_key`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list invoices")
	}
	defer rows.Close()

	var out []model.ExternalInvoice
	for rows.Next() {
		var invJSON []byte
		if err := rows.Scan(&invJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan invoice")
		}
		var inv model.ExternalInvoice
		if err := json.Unmarshal(invJSON, &inv); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal invoice")
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list invoices iterate")
}

func (s *PostgresStore) SeenAccessKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT access_key FROM invoices`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: seen access keys")
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, eris.Wrap(err, "postgres: scan access key")
		}
		seen[key] = struct{}{}
	}
	return seen, eris.Wrap(rows.Err(), "postgres: seen access keys iterate")
}

func (s *PostgresStore) GetExternalAggregate(ctx context.Context, cnpj string) ([]model.ExternalAggregateRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cnpj, date, cfop, model, value, invoices FROM external_aggregate
		 WHERE cnpj = $1
		 ORDER BY date, cfop, model`,
		cnpj,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get external aggregate")
	}
	defer rows.Close()

	var out []model.ExternalAggregateRow
	for rows.Next() {
		var r model.ExternalAggregateRow
		var date time.Time
		if err := rows.Scan(&r.CNPJ, &date, &r.CFOP, &r.Model, &r.Value, &r.Invoices); err != nil {
			return nil, eris.Wrap(err, "postgres: scan external aggregate")
		}
		r.Date = date.UTC()
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get external aggregate iterate")
}

func (s *PostgresStore) ReplaceExternalAggregate(ctx context.Context, cnpj string, rowsIn []model.ExternalAggregateRow) error {
	rows := make([][]any, 0, len(rowsIn))
	for _, r := range rowsIn {
		d := r.Date
		rows = append(rows, []any{r.CNPJ, formatDate(&d), r.CFOP, r.Model, r.Value.String(), r.Invoices})
	}
	return db.ReplaceScoped(ctx, s.pool, "external_aggregate", "cnpj", cnpj,
		[]string{"cnpj", "date", "cfop", "model", "value", "invoices"}, rows)
}

func (s *PostgresStore) ReplaceInconsistencies(ctx context.Context, ledgerID string, findings []model.Inconsistency) error {
	rows := make([][]any, 0, len(findings))
	for i := range findings {
		f := &findings[i]
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.LedgerID = ledgerID
		fJSON, err := json.Marshal(f)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal inconsistency")
		}
		rows = append(rows, []any{f.ID, ledgerID, string(f.Type), string(f.Severity), string(fJSON)})
	}
	return db.ReplaceScoped(ctx, s.pool, "inconsistencies", "ledger_id", ledgerID,
		[]string{"id", "ledger_id", "type", "severity", "finding"}, rows)
}

func (s *PostgresStore) ListInconsistencies(ctx context.Context, ledgerID string) ([]model.Inconsistency, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT finding FROM inconsistencies WHERE ledger_id = $1 ORDER BY severity, type, id`,
		ledgerID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list inconsistencies")
	}
	defer rows.Close()

	var out []model.Inconsistency
	for rows.Next() {
		var fJSON []byte
		if err := rows.Scan(&fJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan inconsistency")
		}
		var f model.Inconsistency
		if err := json.Unmarshal(fJSON, &f); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal inconsistency")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list inconsistencies iterate")
}
