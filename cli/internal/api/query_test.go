package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/cli/internal/database"
	"nuxthub/shared"
)

func TestDecodeResults(t *testing.T) {
	rows, err := decodeResults([]byte(`[{"results":[{"name":"0001_a"}],"success":true}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.JSONEq(t, `{"name":"0001_a"}`, string(rows[0]))

	rows, err = decodeResults([]byte(`{"results":[{"name":"x"},{"name":"y"}]}`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = decodeResults([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = decodeResults(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestProjectDatabaseQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/key1/database/production/query", r.URL.Path)
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "INSERT OR IGNORE INTO _hub_migrations (name) values (?);", req.Query)
		assert.Equal(t, []any{"0001_a"}, req.Params)
		writeJSON(w, http.StatusOK, []map[string]any{{"results": []any{}}})
	})

	_, err := c.Database("key1", shared.EnvProduction).Query(context.Background(), "INSERT OR IGNORE INTO _hub_migrations (name) values (?);", "0001_a")
	require.NoError(t, err)
}

func TestProjectDatabaseMissingTableFeedsReconciler(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query[:6] == "select" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "D1_ERROR: no such table: _hub_migrations"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": []any{}})
	})

	records, err := database.FetchAppliedMigrations(context.Background(), c.Database("key1", shared.EnvPreview))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSelfHostedDatabase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/_hub/database/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"results": []map[string]any{{"id": 1, "name": "0001_a", "applied_at": "2024-01-01 00:00:00"}}})
	}))
	defer srv.Close()

	db := NewSelfHostedDatabase(srv.URL+"/", "secret")
	assert.Equal(t, srv.URL, db.URL())

	records, err := database.FetchAppliedMigrations(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0001_a", records[0].Name)
}

func TestSelfHostedDatabaseUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewSelfHostedDatabase(url, "").Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not connect to "+url)
	var apiErr *shared.APIError
	assert.False(t, errors.As(err, &apiErr))
}
