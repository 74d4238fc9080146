package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/shared"
)

var threeMigrations = mapSource{
	"0001_a": "CREATE TABLE a (id INTEGER);",
	"0002_b": "CREATE TABLE b (id INTEGER)",
	"0003_c": "CREATE TABLE c (id INTEGER);\n",
}

func TestReconcileAppliesOnlyPendingInOrder(t *testing.T) {
	db := newFakeDB("0001_a")
	r := NewReconciler(db, threeMigrations)

	res, err := r.Reconcile(context.Background(), []string{"0001_a", "0002_b", "0003_c"})
	require.NoError(t, err)

	assert.Equal(t, []string{"0002_b", "0003_c"}, res.Applied)
	assert.Empty(t, res.Pending)
	assert.Equal(t, []string{"0002_b", "0003_c"}, db.executed)
	assert.Equal(t, []string{"0001_a", "0002_b", "0003_c"}, db.applied)
}

func TestReconcileTwiceIsNoop(t *testing.T) {
	db := newFakeDB()
	r := NewReconciler(db, threeMigrations)
	local := []string{"0001_a", "0002_b", "0003_c"}

	_, err := r.Reconcile(context.Background(), local)
	require.NoError(t, err)

	res, err := r.Reconcile(context.Background(), local)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Len(t, res.Remote, 3)
	assert.Equal(t, local, db.applied)
}

func TestReconcileHaltsOnFirstFailure(t *testing.T) {
	db := newFakeDB("0001_a")
	db.failOn["0002_b"] = true
	r := NewReconciler(db, threeMigrations)

	res, err := r.Reconcile(context.Background(), []string{"0001_a", "0002_b", "0003_c"})
	require.Error(t, err)

	var qErr *shared.RemoteQueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "0002_b", qErr.Migration)
	assert.Empty(t, qErr.Applied)
	assert.Contains(t, err.Error(), "migration 0002_b failed")

	assert.Equal(t, []string{"0002_b", "0003_c"}, res.Pending)
	assert.Equal(t, []string{"0001_a"}, db.applied)
	assert.NotContains(t, db.executed, "0003_c")
}

func TestReconcileOnFreshDatabaseCreatesTable(t *testing.T) {
	db := newFakeDB()
	res, err := NewReconciler(db, threeMigrations).Reconcile(context.Background(), []string{"0001_a"})
	require.NoError(t, err)

	assert.True(t, db.table)
	assert.Equal(t, []string{"0001_a"}, res.Applied)
	assert.Contains(t, db.queries[0], "CREATE TABLE IF NOT EXISTS _hub_migrations")
}

func TestReconcileMissingMigrationBody(t *testing.T) {
	db := newFakeDB()
	_, err := NewReconciler(db, mapSource{}).Reconcile(context.Background(), []string{"0001_missing"})
	assert.ErrorContains(t, err, "0001_missing not found")
	assert.Empty(t, db.applied)
}

func TestFetchAppliedMigrationsMissingTable(t *testing.T) {
	records, err := FetchAppliedMigrations(context.Background(), newFakeDB())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchAppliedMigrationsMissingTableAPIError(t *testing.T) {
	q := QueryFunc(func(context.Context, string, ...any) ([]json.RawMessage, error) {
		return nil, &shared.APIError{StatusCode: 400, Message: "D1_ERROR: no such table: _hub_migrations: SQLITE_ERROR"}
	})
	records, err := FetchAppliedMigrations(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchAppliedMigrationsOtherError(t *testing.T) {
	q := QueryFunc(func(context.Context, string, ...any) ([]json.RawMessage, error) {
		return nil, &shared.APIError{StatusCode: 401, Message: "unauthorized"}
	})
	_, err := FetchAppliedMigrations(context.Background(), q)
	assert.ErrorContains(t, err, "unauthorized")
}

func TestApplyStatement(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"terminated", "CREATE TABLE t (id INTEGER);", "CREATE TABLE t (id INTEGER);\nINSERT INTO _hub_migrations (name) values ('0001_t');"},
		{"unterminated", "CREATE TABLE t (id INTEGER)", "CREATE TABLE t (id INTEGER);\nINSERT INTO _hub_migrations (name) values ('0001_t');"},
		{"trailing newline", "CREATE TABLE t (id INTEGER);\n\n", "CREATE TABLE t (id INTEGER);\nINSERT INTO _hub_migrations (name) values ('0001_t');"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyStatement(tt.body, "0001_t"))
		})
	}

	assert.Contains(t, ApplyStatement("SELECT 1;", "0002_it's"), "values ('0002_it''s');")
}

func TestMarkAppliedQuery(t *testing.T) {
	query, params := MarkAppliedQuery([]string{"0001_a", "0002_b"})
	assert.Equal(t, "INSERT OR IGNORE INTO _hub_migrations (name) values (?), (?);", query)
	assert.Equal(t, []any{"0001_a", "0002_b"}, params)
}

func TestMarkAllApplied(t *testing.T) {
	db := newFakeDB("0001_a")
	require.NoError(t, MarkAllApplied(context.Background(), db, []string{"0001_a", "0002_b"}))
	assert.Equal(t, []string{"0001_a", "0002_b"}, db.applied)
	assert.Empty(t, db.executed)
}

func TestPending(t *testing.T) {
	applied := []MigrationRecord{{Name: "0002_b"}, {Name: "0009_old"}}
	assert.Equal(t, []string{"0001_a", "0003_c"}, Pending([]string{"0001_a", "0002_b", "0003_c"}, applied))
	assert.Nil(t, Pending([]string{"0002_b"}, applied))
}

func TestMigrationRecordAppliedTime(t *testing.T) {
	rec := MigrationRecord{AppliedAt: "2024-05-01 10:00:00"}
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), rec.AppliedTime())
	assert.True(t, MigrationRecord{AppliedAt: "soon"}.AppliedTime().IsZero())
}
