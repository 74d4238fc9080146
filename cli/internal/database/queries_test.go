package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/shared"
)

type querySource struct {
	names  []string
	bodies map[string]string
}

func (s querySource) QueryNames() []string { return s.names }

func (s querySource) Query(name string) (string, error) { return s.bodies[name], nil }

func TestApplyQueriesStopsAtFirstFailure(t *testing.T) {
	var ran []string
	q := QueryFunc(func(_ context.Context, query string, _ ...any) ([]json.RawMessage, error) {
		if query == "BROKEN" {
			return nil, fmt.Errorf("syntax error")
		}
		ran = append(ran, query)
		return nil, nil
	})
	src := querySource{
		names:  []string{"a", "b", "c"},
		bodies: map[string]string{"a": "SELECT 1", "b": "BROKEN", "c": "SELECT 3"},
	}

	done, err := ApplyQueries(context.Background(), q, src)
	require.Error(t, err)

	var qErr *shared.RemoteQueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "b", qErr.Query)
	assert.Equal(t, []string{"a"}, done)
	assert.Equal(t, []string{"SELECT 1"}, ran)
}

func TestApplyQueriesNone(t *testing.T) {
	done, err := ApplyQueries(context.Background(), newFakeDB(), querySource{})
	require.NoError(t, err)
	assert.Empty(t, done)
}
