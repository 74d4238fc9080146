package database

import (
	"context"

	"nuxthub/shared"
)

// QuerySource supplies one-off query bodies by name.
type QuerySource interface {
	QueryNames() []string
	Query(name string) (string, error)
}

// ApplyQueries runs every bundled query in name order and stops at the first failure.
// It returns the names that ran successfully.
func ApplyQueries(ctx context.Context, q Querier, source QuerySource) ([]string, error) {
	var done []string
	for _, name := range source.QueryNames() {
		body, err := source.Query(name)
		if err != nil {
			return done, err
		}
		logger.Info("Running query %s", name)
		if _, err := q.Query(ctx, body); err != nil {
			return done, &shared.RemoteQueryError{Query: name, Applied: done, Err: err}
		}
		done = append(done, name)
	}
	return done, nil
}
