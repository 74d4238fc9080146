package wrangler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/cli/internal/assets"
)

func TestGenerateDefaults(t *testing.T) {
	data, err := Generate(assets.HubConfig{})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, []any{"nodejs_compat"}, got["compatibility_flags"])
	assert.NotContains(t, got, "d1_databases")
	assert.NotContains(t, got, "ai")
}

func TestGenerateAllBindings(t *testing.T) {
	hub := assets.HubConfig{
		"ai": true, "browser": true, "analytics": true, "blob": true,
		"kv": true, "cache": true, "database": true,
		"bindings": map[string]any{
			"compatibilityFlags": []any{"nodejs_als"},
			"compatibilityDate":  "2024-09-19",
		},
	}
	data, err := Generate(hub)
	require.NoError(t, err)

	var got Config
	require.NoError(t, toml.Unmarshal(data, &got))
	assert.Equal(t, []string{"nodejs_als"}, got.CompatibilityFlags)
	assert.Equal(t, "2024-09-19", got.CompatibilityDate)
	require.NotNil(t, got.AI)
	assert.Equal(t, "AI", got.AI.Binding)
	assert.Equal(t, "BROWSER", got.Browser.Binding)
	assert.Equal(t, []analyticsDataset{{Binding: "ANALYTICS", Dataset: "default"}}, got.AnalyticsEngineDatasets)
	assert.Equal(t, []r2Bucket{{Binding: "BLOB", BucketName: "default"}}, got.R2Buckets)
	assert.Equal(t, []kvNamespace{{Binding: "KV", ID: "kv_default"}, {Binding: "CACHE", ID: "cache_default"}}, got.KVNamespaces)
	require.Len(t, got.D1Databases, 1)
	assert.Equal(t, "hub_migrations", got.D1Databases[0].MigrationsTable)
	assert.Equal(t, "database/migrations", got.D1Databases[0].MigrationsDir)
}

func TestEnsureGitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, EnsureGitignore(dir))
	_, err := os.Stat(filepath.Join(dir, ".gitignore"))
	assert.True(t, os.IsNotExist(err))

	p := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(p, []byte("node_modules\ndist\n"), 0o644))
	require.NoError(t, EnsureGitignore(dir))
	require.NoError(t, EnsureGitignore(dir))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "node_modules\ndist\n.wrangler\n", string(data))
}
