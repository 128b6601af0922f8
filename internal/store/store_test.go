package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/histnorm/internal/core"
	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/schema"
	"github.com/JonMunkholm/histnorm/internal/testutil"
)

func TestToPgText(t *testing.T) {
	assert.Equal(t, pgtype.Text{String: "China", Valid: true}, ToPgText("  China "))
	assert.False(t, ToPgText("   ").Valid)
}

func TestToPgInt4(t *testing.T) {
	assert.Equal(t, pgtype.Int4{Int32: 1995, Valid: true}, ToPgInt4(" 1995"))
	assert.False(t, ToPgInt4("").Valid)
	assert.False(t, ToPgInt4("1995.5").Valid)
	assert.False(t, ToPgInt4("99999999999").Valid)
}

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		want  string
	}{
		{"1000", true, "1000"},
		{"0.0125", true, "0.0125"},
		{"1,234.5", true, "1234.5"},
		{"-3", true, "-3"},
		{"", false, ""},
		{"n/a", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ToPgNumeric(tt.in)
			require.Equal(t, tt.valid, got.Valid)
			if !tt.valid {
				return
			}
			f, err := got.Float64Value()
			require.NoError(t, err)
			want := ToPgNumeric(tt.want)
			wf, _ := want.Float64Value()
			assert.InDelta(t, wf.Float64, f.Float64, 1e-12)
		})
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	require.Len(t, cols, len(schema.Names()))
	assert.Equal(t, "id", cols[0])
	assert.Equal(t, "vehicle_type", cols[len(cols)-1])
}

func TestCreateTableSQL(t *testing.T) {
	ddl := CreateTableSQL("observations")
	assert.True(t, strings.HasPrefix(ddl, `CREATE TABLE IF NOT EXISTS "observations" (`))
	assert.Contains(t, ddl, `"year" integer NOT NULL`)
	assert.Contains(t, ddl, `"value" numeric,`)
	assert.Contains(t, ddl, `"iso_code" text NOT NULL`)
}

func canonicalTable(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New(schema.Names()...)
	require.NoError(t, f.Append("T001", "China", "CHN", "R11_CPA", "1995", "Freight Activity", "1",
		"Gt km / year", "ITF", "Freight", "All", "All", "Shipping", "Coastal"))
	require.NoError(t, f.Append("T001", "Japan", "JPN", "R11_PAO", "1995", "Freight Activity", "",
		"Gt km / year", "ITF", "Freight", "All", "All", "Shipping", "Coastal"))
	return f
}

func TestRows(t *testing.T) {
	rows, err := Rows(canonicalTable(t))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, pgtype.Text{String: "T001", Valid: true}, rows[0][schema.ID])
	assert.Equal(t, pgtype.Int4{Int32: 1995, Valid: true}, rows[0][schema.Year])
	assert.True(t, rows[0][schema.Value].(pgtype.Numeric).Valid)
	assert.False(t, rows[1][schema.Value].(pgtype.Numeric).Valid, "empty value is NULL")

	_, err = Rows(frame.New("Country"))
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)
}

// fakeTx records the statements of one transaction.
type fakeTx struct {
	pgx.Tx
	execs     []string
	copied    [][]any
	copyErr   error
	committed bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, sql)
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (tx *fakeTx) CopyFrom(ctx context.Context, _ pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if tx.copyErr != nil {
		return 0, tx.copyErr
	}
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return 0, err
		}
		tx.copied = append(tx.copied, v)
	}
	return int64(len(tx.copied)), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct {
	tx      *fakeTx
	execs   []string
	args    [][]any
	execErr error
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	db.args = append(db.args, args)
	return pgconn.CommandTag{}, db.execErr
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return db.tx, nil
}

func TestObservationStore_Publish(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	s := NewObservationStore(db)
	assert.Equal(t, "postgres", s.Name())

	err := s.Publish(testutil.Context(t), "T001", canonicalTable(t))
	require.NoError(t, err)

	require.Len(t, db.tx.execs, 1)
	assert.Equal(t, `DELETE FROM "observations" WHERE "id" = $1`, db.tx.execs[0])
	assert.Len(t, db.tx.copied, 2)
	assert.True(t, db.tx.committed)
}

func TestObservationStore_PublishCopyFailure(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{copyErr: errors.New("connection refused")}}
	err := NewObservationStore(db).Publish(testutil.Context(t), "T001", canonicalTable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy rows")
	assert.False(t, db.tx.committed)
}

func TestObservationStore_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewObservationStore(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS")
	assert.Equal(t, `CREATE INDEX IF NOT EXISTS "observations_id_idx" ON "observations" ("id")`, db.execs[1])
	assert.Contains(t, db.execs[2], `CREATE TABLE IF NOT EXISTS "pipeline_runs"`)
}

func TestObservationStore_Reset(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	n, err := NewObservationStore(db).Reset(testutil.Context(t), "T001", "T002")
	require.NoError(t, err)

	assert.Equal(t, int64(6), n, "two deletes of 3 rows each")
	assert.Equal(t, []string{
		`DELETE FROM "observations" WHERE "id" = $1`,
		`DELETE FROM "observations" WHERE "id" = $1`,
	}, db.tx.execs)
	assert.True(t, db.tx.committed)
}

func TestObservationStore_ResetAll(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{}}
	_, err := NewObservationStore(db).Reset(testutil.Context(t))
	require.NoError(t, err)

	assert.Equal(t, []string{`DELETE FROM "observations"`}, db.tx.execs)
}

func TestToPgUUID(t *testing.T) {
	u := ToPgUUID("6f1c2e1a-8d6b-4c47-9a43-1c2d3e4f5a6b")
	assert.True(t, u.Valid)
	assert.False(t, ToPgUUID("").Valid)
	assert.False(t, ToPgUUID("not-a-uuid").Valid)
}

func TestObservationStore_RecordRun(t *testing.T) {
	db := &fakeDB{}
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := NewObservationStore(db).RecordRun(context.Background(), core.RunEntry{
		RunID:     "6f1c2e1a-8d6b-4c47-9a43-1c2d3e4f5a6b",
		DatasetID: "T001",
		Status:    core.RunFailed,
		Error:     "unknown country: \"Atlantis\"",
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], `INSERT INTO "pipeline_runs"`)

	args := db.args[0]
	require.Len(t, args, 8)
	assert.True(t, args[0].(pgtype.UUID).Valid)
	assert.Equal(t, "T001", args[1])
	assert.Equal(t, "failed", args[2])
	assert.Equal(t, []byte("[]"), args[4], "nil warnings stored as an empty array")
	assert.Equal(t, pgtype.Text{String: `unknown country: "Atlantis"`, Valid: true}, args[5])
	assert.Equal(t, pgtype.Timestamptz{Time: started, Valid: true}, args[6])
	assert.Equal(t, int64(1500), args[7])
}

func TestObservationStore_RecordRunError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}
	err := NewObservationStore(db).RecordRun(context.Background(), core.RunEntry{RunID: "x", Status: core.RunSucceeded})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run x")
}
