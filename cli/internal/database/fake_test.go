package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var insertName = regexp.MustCompile(`INSERT INTO _hub_migrations \(name\) values \('((?:[^']|'')*)'\);`)

// fakeDB understands just enough of the bookkeeping SQL to act as a remote database.
type fakeDB struct {
	mu       sync.Mutex
	table    bool
	applied  []string
	failOn   map[string]bool
	executed []string
	queries  []string
}

func newFakeDB(applied ...string) *fakeDB {
	db := &fakeDB{failOn: map[string]bool{}}
	if len(applied) > 0 {
		db.table = true
		db.applied = append(db.applied, applied...)
	}
	return db
}

func (db *fakeDB) Query(_ context.Context, query string, params ...any) ([]json.RawMessage, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, query)

	switch {
	case strings.HasPrefix(query, "CREATE TABLE IF NOT EXISTS _hub_migrations"):
		db.table = true
		return nil, nil
	case strings.HasPrefix(query, `select "id", "name", "applied_at"`):
		if !db.table {
			return nil, errors.New("D1_ERROR: no such table: _hub_migrations")
		}
		rows := make([]json.RawMessage, 0, len(db.applied))
		for i, name := range db.applied {
			row, _ := json.Marshal(MigrationRecord{ID: int64(i + 1), Name: name, AppliedAt: "2024-05-01 10:00:00"})
			rows = append(rows, row)
		}
		return rows, nil
	case strings.HasPrefix(query, "INSERT OR IGNORE INTO _hub_migrations"):
		for _, p := range params {
			db.record(fmt.Sprint(p))
		}
		return nil, nil
	}

	m := insertName.FindStringSubmatch(query)
	if m == nil {
		db.executed = append(db.executed, query)
		return nil, nil
	}
	name := strings.ReplaceAll(m[1], "''", "'")
	if db.failOn[name] {
		return nil, fmt.Errorf("D1_ERROR: syntax error in %s", name)
	}
	if !db.table {
		return nil, errors.New("no such table: _hub_migrations")
	}
	for _, a := range db.applied {
		if a == name {
			return nil, errors.New("UNIQUE constraint failed: _hub_migrations.name")
		}
	}
	db.applied = append(db.applied, name)
	db.executed = append(db.executed, name)
	return nil, nil
}

func (db *fakeDB) record(name string) {
	for _, a := range db.applied {
		if a == name {
			return
		}
	}
	db.applied = append(db.applied, name)
}

type mapSource map[string]string

func (m mapSource) Migration(name string) (string, error) {
	body, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%s not found", name)
	}
	return body, nil
}
