package wrangler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared"
	"nuxthub/shared/fs"
)

var logger = shared.PackageLogger("wrangler", "🤠 WRANGLER")

// FileName is written into the build output for the duration of a preview.
const FileName = "wrangler.toml"

type binding struct {
	Binding string `toml:"binding"`
}

type analyticsDataset struct {
	Binding string `toml:"binding"`
	Dataset string `toml:"dataset"`
}

type r2Bucket struct {
	Binding    string `toml:"binding"`
	BucketName string `toml:"bucket_name"`
}

type kvNamespace struct {
	Binding string `toml:"binding"`
	ID      string `toml:"id"`
}

type d1Database struct {
	Binding         string `toml:"binding"`
	DatabaseName    string `toml:"database_name"`
	DatabaseID      string `toml:"database_id"`
	MigrationsTable string `toml:"migrations_table"`
	MigrationsDir   string `toml:"migrations_dir"`
}

// Config is the subset of wrangler.toml needed to emulate the project bindings locally.
type Config struct {
	CompatibilityFlags      []string           `toml:"compatibility_flags"`
	CompatibilityDate       string             `toml:"compatibility_date,omitempty"`
	AI                      *binding           `toml:"ai,omitempty"`
	Browser                 *binding           `toml:"browser,omitempty"`
	AnalyticsEngineDatasets []analyticsDataset `toml:"analytics_engine_datasets,omitempty"`
	R2Buckets               []r2Bucket         `toml:"r2_buckets,omitempty"`
	KVNamespaces            []kvNamespace      `toml:"kv_namespaces,omitempty"`
	D1Databases             []d1Database       `toml:"d1_databases,omitempty"`
}

// FromHubConfig maps enabled hub features to local bindings.
func FromHubConfig(hub assets.HubConfig) *Config {
	cfg := &Config{CompatibilityFlags: []string{"nodejs_compat"}}

	if bindings, ok := hub["bindings"].(map[string]any); ok {
		if flags, ok := bindings["compatibilityFlags"].([]any); ok {
			cfg.CompatibilityFlags = cfg.CompatibilityFlags[:0]
			for _, f := range flags {
				cfg.CompatibilityFlags = append(cfg.CompatibilityFlags, fmt.Sprint(f))
			}
		}
		if date, ok := bindings["compatibilityDate"].(string); ok {
			cfg.CompatibilityDate = date
		}
	}

	if hub.Enabled("ai") {
		cfg.AI = &binding{Binding: "AI"}
	}
	if hub.Enabled("browser") {
		cfg.Browser = &binding{Binding: "BROWSER"}
	}
	if hub.Enabled("analytics") {
		cfg.AnalyticsEngineDatasets = []analyticsDataset{{Binding: "ANALYTICS", Dataset: "default"}}
	}
	if hub.Enabled("blob") {
		cfg.R2Buckets = []r2Bucket{{Binding: "BLOB", BucketName: "default"}}
	}
	if hub.Enabled("kv") {
		cfg.KVNamespaces = append(cfg.KVNamespaces, kvNamespace{Binding: "KV", ID: "kv_default"})
	}
	if hub.Enabled("cache") {
		cfg.KVNamespaces = append(cfg.KVNamespaces, kvNamespace{Binding: "CACHE", ID: "cache_default"})
	}
	if hub.Enabled("database") {
		cfg.D1Databases = []d1Database{{
			Binding:         "DB",
			DatabaseName:    "default",
			DatabaseID:      "default",
			MigrationsTable: "hub_migrations",
			MigrationsDir:   assets.MigrationsDir,
		}}
	}
	return cfg
}

// Generate renders wrangler.toml for hub.
func Generate(hub assets.HubConfig) ([]byte, error) {
	data, err := toml.Marshal(FromHubConfig(hub))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	return data, nil
}

// EnsureGitignore appends .wrangler to an existing .gitignore that does not mention it.
func EnsureGitignore(projectDir string) error {
	p := filepath.Join(projectDir, ".gitignore")
	data, err := os.ReadFile(p)
	if errors.Is(err, iofs.ErrNotExist) || len(data) == 0 {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read .gitignore: %w", err)
	}
	if bytes.Contains(data, []byte(".wrangler")) {
		return nil
	}
	content := strings.TrimRight(string(data), "\n") + "\n.wrangler\n"
	return os.WriteFile(p, []byte(content), 0o644)
}

// Preview writes wrangler.toml into distDir, runs `wrangler pages dev .` there and
// removes the file again once wrangler exits.
func Preview(ctx context.Context, projectDir, distDir string, hub assets.HubConfig) error {
	if err := EnsureGitignore(projectDir); err != nil {
		logger.Warn("Could not update .gitignore: %v", err)
	}

	data, err := Generate(hub)
	if err != nil {
		return err
	}
	p := filepath.Join(distDir, FileName)
	logger.Info("Generating %s", FileName)
	if err := fs.NewFileWriter(true, false).Write(p, data); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	defer func() {
		logger.Debug("Deleting generated %s", FileName)
		if err := os.Remove(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			logger.Warn("Could not delete %s: %v", p, err)
		}
	}()

	bin, args := command(projectDir)
	logger.Info("Starting `wrangler pages dev`")
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = distDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return &shared.NotFoundError{Path: "wrangler", Hint: "install it with `npx nypm i -D wrangler`"}
		}
		return fmt.Errorf("wrangler pages dev: %w", err)
	}
	return nil
}

// command prefers the project's local wrangler binary over one on PATH.
func command(projectDir string) (string, []string) {
	args := []string{"pages", "dev", "."}
	local := filepath.Join(projectDir, "node_modules", ".bin", "wrangler")
	if _, err := os.Stat(local); err == nil {
		return local, args
	}
	return "wrangler", args
}
