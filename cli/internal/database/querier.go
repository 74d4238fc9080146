package database

import (
	"context"
	"encoding/json"

	"nuxthub/shared"
)

var logger = shared.PackageLogger("database", "🗄️  DATABASE")

// Querier runs raw SQL against a project database and returns the result rows.
// The hosted API and a self-hosted project endpoint both implement it.
type Querier interface {
	Query(ctx context.Context, query string, params ...any) ([]json.RawMessage, error)
}

// QueryFunc adapts a plain function to Querier.
type QueryFunc func(ctx context.Context, query string, params ...any) ([]json.RawMessage, error)

func (f QueryFunc) Query(ctx context.Context, query string, params ...any) ([]json.RawMessage, error) {
	return f(ctx, query, params...)
}
