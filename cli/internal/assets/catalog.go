package assets

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"nuxthub/shared"
)

const (
	// MaxAssetSize is the per-object limit of the edge upload transport.
	MaxAssetSize int64 = 25 * 1024 * 1024

	MigrationsDir = "database/migrations"
	QueriesDir    = "database/queries"
	ConfigPath    = "/hub.config.json"
)

// excluded paths are never deployed. Patterns match the slash path relative to the root.
var excluded = []string{
	".wrangler/**",
	"node_modules/**",
	"**/node_modules/**",
	"**/.dev.vars",
	"**/.env",
	"**/.env.*",
	"**/.DS_Store",
	MigrationsDir + "/**",
	QueriesDir + "/**",
}

var logger = shared.PackageLogger("assets", "📦 ASSETS")

// Catalog is the deployable view of one build output directory.
type Catalog struct {
	root       string
	files      []FileArtifact
	migrations []string
	queries    []string
}

// NewCatalog walks root and builds every artifact up front.
func NewCatalog(root string) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &shared.NotFoundError{Path: root, Hint: "please make sure that you have built your project"}
	}

	c := &Catalog{root: root}
	tooLarge := &shared.AssetTooLargeError{Limit: MaxAssetSize}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if c.collectDatabaseFile(rel) || isExcluded(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		deployPath := "/" + rel
		if fi.Size() > MaxAssetSize {
			tooLarge.Files = append(tooLarge.Files, shared.OversizedFile{Path: deployPath, Size: fi.Size()})
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", deployPath, err)
		}
		c.files = append(c.files, FileArtifact{
			Path:           deployPath,
			Data:           data,
			Size:           int64(len(data)),
			CompressedSize: compressedSize(data),
			ContentType:    ContentType(deployPath, data),
			Hash:           Hash(deployPath, data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan build output: %w", err)
	}
	if len(tooLarge.Files) > 0 {
		return nil, tooLarge
	}

	sort.Slice(c.files, func(i, j int) bool { return c.files[i].Path < c.files[j].Path })
	SortMigrations(c.migrations)
	sort.Strings(c.queries)

	logger.Debug("Catalogued %d files (%s) in %s", len(c.files), shared.FormatBytes(TotalSize(c.files)), root)
	return c, nil
}

func isExcluded(rel string) bool {
	for _, pattern := range excluded {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// collectDatabaseFile records migration and query names; it reports whether rel lives in the database subtree.
func (c *Catalog) collectDatabaseFile(rel string) bool {
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	if !strings.HasSuffix(file, ".sql") {
		return false
	}
	name := strings.TrimSuffix(file, ".sql")
	switch dir {
	case MigrationsDir:
		c.migrations = append(c.migrations, name)
		return true
	case QueriesDir:
		c.queries = append(c.queries, name)
		return true
	}
	return false
}

func (c *Catalog) Root() string { return c.root }

// Files returns every deployable artifact sorted by path.
func (c *Catalog) Files() []FileArtifact { return c.files }

func (c *Catalog) filter(class Class) []FileArtifact {
	var out []FileArtifact
	for _, f := range c.files {
		if f.Class() == class {
			out = append(out, f)
		}
	}
	return out
}

func (c *Catalog) PublicFiles() []FileArtifact { return c.filter(ClassPublic) }

func (c *Catalog) ServerFiles() []FileArtifact { return c.filter(ClassServer) }

func (c *Catalog) MetaFiles() []FileArtifact { return c.filter(ClassMeta) }

// Manifest maps each public path to its content hash.
func (c *Catalog) Manifest() map[string]string {
	m := make(map[string]string)
	for _, f := range c.PublicFiles() {
		m[f.Path] = f.Hash
	}
	return m
}

// Get returns the artifact at a deploy path.
func (c *Catalog) Get(deployPath string) (FileArtifact, bool) {
	i := sort.Search(len(c.files), func(i int) bool { return c.files[i].Path >= deployPath })
	if i < len(c.files) && c.files[i].Path == deployPath {
		return c.files[i], true
	}
	return FileArtifact{}, false
}

// MigrationNames lists bundled migrations in apply order.
func (c *Catalog) MigrationNames() []string { return c.migrations }

// Migration reads the SQL body of a bundled migration.
func (c *Catalog) Migration(name string) (string, error) {
	return c.readSQL(MigrationsDir, name)
}

// QueryNames lists bundled one-off queries in name order.
func (c *Catalog) QueryNames() []string { return c.queries }

func (c *Catalog) Query(name string) (string, error) {
	return c.readSQL(QueriesDir, name)
}

func (c *Catalog) readSQL(dir, name string) (string, error) {
	p := filepath.Join(c.root, filepath.FromSlash(dir), name+".sql")
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", &shared.NotFoundError{Path: p}
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// HubConfig is the project configuration snapshot written by the build.
type HubConfig map[string]any

// Enabled reports whether a boolean feature flag is set.
func (h HubConfig) Enabled(feature string) bool {
	v, ok := h[feature].(bool)
	return ok && v
}

// Config parses hub.config.json. It is NotFound when the build did not emit one.
func (c *Catalog) Config() (HubConfig, error) {
	f, ok := c.Get(ConfigPath)
	if !ok {
		return nil, missingConfig(c.root)
	}
	return parseHubConfig(f.Data)
}

// ReadHubConfig reads hub.config.json from a build output directory without cataloging it.
func ReadHubConfig(root string) (HubConfig, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(ConfigPath, "/"))))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, missingConfig(root)
	}
	if err != nil {
		return nil, fmt.Errorf("read hub.config.json: %w", err)
	}
	return parseHubConfig(data)
}

func missingConfig(root string) error {
	return &shared.NotFoundError{Path: filepath.Join(root, "hub.config.json"), Hint: "please make sure that you have built your project"}
}

func parseHubConfig(data []byte) (HubConfig, error) {
	var cfg HubConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse hub.config.json: %w", err)
	}
	return cfg, nil
}

// SortMigrations orders names by their numeric prefix, then lexically.
func SortMigrations(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := MigrationNumber(names[i]), MigrationNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})
}

// MigrationNumber parses the prefix before the first underscore, 0 when absent.
func MigrationNumber(name string) int {
	prefix, _, _ := strings.Cut(name, "_")
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return n
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// compressedSize estimates the gzip size for reporting.
func compressedSize(data []byte) int64 {
	cw := &countingWriter{}
	zw, err := gzip.NewWriterLevel(cw, gzip.DefaultCompression)
	if err != nil {
		return int64(len(data))
	}
	if _, err := zw.Write(data); err != nil {
		return int64(len(data))
	}
	if err := zw.Close(); err != nil {
		return int64(len(data))
	}
	return cw.n
}
