// Package store publishes canonical tables to PostgreSQL.
//
// Every dataset's rows live in one observations table whose columns are the
// canonical schema's snake-case names. Publishing a dataset replaces all of
// its previous rows in a single transaction.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/schema"
)

// DefaultTable is the table observations are written to.
const DefaultTable = "observations"

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ObservationStore writes canonical tables to the observations table.
type ObservationStore struct {
	db    DB
	table string
}

// NewObservationStore creates a store over db.
func NewObservationStore(db DB) *ObservationStore {
	return &ObservationStore{db: db, table: DefaultTable}
}

// Name identifies the sink in run results.
func (s *ObservationStore) Name() string {
	return "postgres"
}

// Columns returns the observations table columns in canonical order.
func Columns() []string {
	specs := schema.FieldSpecs()
	cols := make([]string, len(specs))
	for i, spec := range specs {
		cols[i] = spec.DBColumn
	}
	return cols
}

// CreateTableSQL returns the DDL for the observations table.
func CreateTableSQL(table string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", pgx.Identifier{table}.Sanitize())
	for _, spec := range schema.FieldSpecs() {
		null := " NOT NULL"
		if spec.AllowEmpty {
			null = ""
		}
		fmt.Fprintf(&b, "\t%s %s%s,\n", pgx.Identifier{spec.DBColumn}.Sanitize(), sqlType(spec.Type), null)
	}
	b.WriteString("\tloaded_at timestamptz NOT NULL DEFAULT now()\n)")
	return b.String()
}

// EnsureSchema creates the observations table, its dataset index and the
// run audit table.
func (s *ObservationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, CreateTableSQL(s.table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pgx.Identifier{s.table + "_id_idx"}.Sanitize(),
		pgx.Identifier{s.table}.Sanitize(),
		pgx.Identifier{schema.ID.Dimension()}.Sanitize(),
	)
	if _, err := s.db.Exec(ctx, idx); err != nil {
		return fmt.Errorf("create index on %s: %w", s.table, err)
	}
	if _, err := s.db.Exec(ctx, CreateRunsTableSQL()); err != nil {
		return fmt.Errorf("create %s: %w", RunsTable, err)
	}
	return nil
}

// Publish replaces the stored rows of a dataset with table.
func (s *ObservationStore) Publish(ctx context.Context, datasetID string, table *frame.Frame) error {
	rows, err := Rows(table)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pgx.Identifier{s.table}.Sanitize(),
		pgx.Identifier{schema.ID.Dimension()}.Sanitize(),
	)
	tag, err := tx.Exec(ctx, del, datasetID)
	if err != nil {
		return fmt.Errorf("delete previous rows: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, Columns(), pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("observations published",
		"dataset", datasetID,
		"replaced", tag.RowsAffected(),
		"inserted", n,
	)
	return nil
}

// Rows converts a canonical table into COPY rows.
func Rows(table *frame.Frame) ([][]any, error) {
	specs := schema.FieldSpecs()
	positions := make([]int, len(specs))
	for k, spec := range specs {
		j, err := table.Index(spec.Name)
		if err != nil {
			return nil, err
		}
		positions[k] = j
	}

	rows := make([][]any, table.Len())
	for i := range rows {
		cells := table.Row(i)
		row := make([]any, len(specs))
		for k, spec := range specs {
			row[k] = toPg(spec, cells[positions[k]])
		}
		rows[i] = row
	}
	return rows, nil
}
