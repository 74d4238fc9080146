package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nuxthub/shared"
)

// MigrationsTable records applied migrations by unique name.
const MigrationsTable = "_hub_migrations"

const createMigrationsTableQuery = `CREATE TABLE IF NOT EXISTS _hub_migrations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT UNIQUE,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL
);`

const listMigrationsQuery = `select "id", "name", "applied_at" from "_hub_migrations" order by "_hub_migrations"."id"`

// appliedAtLayout is how SQLite renders CURRENT_TIMESTAMP.
const appliedAtLayout = "2006-01-02 15:04:05"

// MigrationRecord is one row of the bookkeeping table.
type MigrationRecord struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AppliedAt string `json:"applied_at"`
}

// AppliedTime parses AppliedAt as UTC. The zero time is returned when it cannot be parsed.
func (r MigrationRecord) AppliedTime() time.Time {
	t, err := time.ParseInLocation(appliedAtLayout, r.AppliedAt, time.UTC)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, r.AppliedAt); err != nil {
			return time.Time{}
		}
	}
	return t
}

// CreateMigrationsTable creates the bookkeeping table if it does not exist yet.
func CreateMigrationsTable(ctx context.Context, q Querier) error {
	if _, err := q.Query(ctx, createMigrationsTableQuery); err != nil {
		return fmt.Errorf("create %s table: %w", MigrationsTable, err)
	}
	return nil
}

// FetchAppliedMigrations lists bookkeeping rows ordered by id. A missing table
// means nothing was applied yet and yields an empty list.
func FetchAppliedMigrations(ctx context.Context, q Querier) ([]MigrationRecord, error) {
	rows, err := q.Query(ctx, listMigrationsQuery)
	if err != nil {
		if isMissingTable(err) {
			logger.Debug("Table %s does not exist yet", MigrationsTable)
			return []MigrationRecord{}, nil
		}
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}

	records := make([]MigrationRecord, 0, len(rows))
	for _, row := range rows {
		var rec MigrationRecord
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, fmt.Errorf("decode migration row: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func isMissingTable(err error) bool {
	var apiErr *shared.APIError
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "no such table")
	}
	return strings.Contains(err.Error(), "no such table")
}

// Pending returns the local names that have no bookkeeping row, keeping local order.
func Pending(local []string, applied []MigrationRecord) []string {
	seen := make(map[string]struct{}, len(applied))
	for _, rec := range applied {
		seen[rec.Name] = struct{}{}
	}
	var pending []string
	for _, name := range local {
		if _, ok := seen[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending
}

// ApplyStatement joins a migration body with its bookkeeping insert so both
// are sent as a single batch.
func ApplyStatement(body, name string) string {
	body = strings.TrimRight(body, " \t\r\n")
	if body != "" && !strings.HasSuffix(body, ";") {
		body += ";"
	}
	return fmt.Sprintf("%s\nINSERT INTO %s (name) values ('%s');", body, MigrationsTable, strings.ReplaceAll(name, "'", "''"))
}

// MarkAppliedQuery builds one INSERT OR IGNORE recording every name as applied.
func MarkAppliedQuery(names []string) (string, []any) {
	placeholders := make([]string, len(names))
	params := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "(?)"
		params[i] = name
	}
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (name) values %s;", MigrationsTable, strings.Join(placeholders, ", ")), params
}

// MarkAllApplied records names as applied without running them.
func MarkAllApplied(ctx context.Context, q Querier, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if err := CreateMigrationsTable(ctx, q); err != nil {
		return err
	}
	query, params := MarkAppliedQuery(names)
	if _, err := q.Query(ctx, query, params...); err != nil {
		return fmt.Errorf("mark migrations as applied: %w", err)
	}
	return nil
}

// MigrationSource supplies migration bodies by name.
type MigrationSource interface {
	Migration(name string) (string, error)
}

// Reconciler brings a remote database up to date with the local migrations.
type Reconciler struct {
	querier Querier
	source  MigrationSource
}

func NewReconciler(q Querier, source MigrationSource) *Reconciler {
	return &Reconciler{querier: q, source: source}
}

// ReconcileResult reports what a run did. Pending holds the names still
// unapplied when the run stopped.
type ReconcileResult struct {
	Remote  []MigrationRecord
	Applied []string
	Pending []string
}

// Reconcile applies every local migration missing remotely, strictly in the
// given order. It stops at the first failure; later migrations stay pending.
// The body and its bookkeeping insert run as one batch but not inside a
// transaction, so a remote crash between the two can still split them.
func (r *Reconciler) Reconcile(ctx context.Context, local []string) (*ReconcileResult, error) {
	if err := CreateMigrationsTable(ctx, r.querier); err != nil {
		return nil, err
	}
	remote, err := FetchAppliedMigrations(ctx, r.querier)
	if err != nil {
		return nil, err
	}
	logger.Info("Found %d applied migration(s)", len(remote))

	pending := Pending(local, remote)
	result := &ReconcileResult{Remote: remote, Pending: pending}
	if len(pending) == 0 {
		logger.Info("No pending migrations to apply")
		return result, nil
	}

	for i, name := range pending {
		body, err := r.source.Migration(name)
		if err != nil {
			return result, err
		}

		logger.Info("Applying migration %s", name)
		if _, err := r.querier.Query(ctx, ApplyStatement(body, name)); err != nil {
			logger.Error("Failed to apply migration %s", name)
			return result, &shared.RemoteQueryError{Migration: name, Applied: result.Applied, Err: err}
		}
		result.Applied = append(result.Applied, name)
		result.Pending = pending[i+1:]
		logger.Success("Applied migration %s", name)
	}
	return result, nil
}
