package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"Sentinela/internal/domain"
	"Sentinela/internal/ports"
)

const ledgerTable = "published_items"

const ledgerSchema = `CREATE TABLE IF NOT EXISTS published_items (
	pipeline     TEXT NOT NULL,
	item_id      TEXT NOT NULL,
	published_at TEXT NOT NULL,
	PRIMARY KEY (pipeline, item_id)
)`

// SQLLedger stores the ledger of one pipeline as rows of the published_items table.
type SQLLedger struct {
	db       *sql.DB
	builder  sq.StatementBuilderType
	pipeline string
}

var _ ports.LedgerStore = (*SQLLedger)(nil)

// OpenSQLLedger connects to postgres or sqlite and ensures the schema exists.
func OpenSQLLedger(ctx context.Context, driver, dsn, pipeline string) (*SQLLedger, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	ledger := NewSQLLedger(db, driver, pipeline)
	if err := ledger.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewSQLLedger wires an existing sql.DB; postgres uses $n placeholders, anything else ?.
func NewSQLLedger(db *sql.DB, driver, pipeline string) *SQLLedger {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}
	return &SQLLedger{
		db:       db,
		builder:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		pipeline: pipeline,
	}
}

// Migrate creates the ledger table when missing.
func (s *SQLLedger) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLLedger) Close() error {
	return s.db.Close()
}

// Load reads every row of the pipeline; an unparsable timestamp is reported as corrupt state.
func (s *SQLLedger) Load(ctx context.Context) (domain.Ledger, error) {
	query, args, err := s.builder.
		Select("item_id", "published_at").
		From(ledgerTable).
		Where(sq.Eq{"pipeline": s.pipeline}).
		OrderBy("published_at").
		ToSql()
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("build load query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var ledger domain.Ledger
	for rows.Next() {
		var id, stamp string
		if err := rows.Scan(&id, &stamp); err != nil {
			return domain.Ledger{}, fmt.Errorf("scan ledger row: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, stamp)
		if err != nil {
			return domain.Ledger{}, fmt.Errorf("ledger row %s: %w: %w", id, domain.ErrCorruptState, err)
		}
		ledger.Entries = append(ledger.Entries, domain.LedgerEntry{ID: id, PublishedAt: at.UTC()})
	}
	if err := rows.Err(); err != nil {
		return domain.Ledger{}, fmt.Errorf("rows iteration: %w", err)
	}

	return ledger, nil
}

// Save replaces the pipeline's rows in a single transaction.
func (s *SQLLedger) Save(ctx context.Context, ledger domain.Ledger) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := s.builder.Delete(ledgerTable).Where(sq.Eq{"pipeline": s.pipeline}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}

	if len(ledger.Entries) > 0 {
		insert := s.builder.Insert(ledgerTable).Columns("pipeline", "item_id", "published_at")
		for _, e := range ledger.Entries {
			insert = insert.Values(s.pipeline, e.ID, e.PublishedAt.UTC().Format(time.RFC3339Nano))
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert ledger: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}
