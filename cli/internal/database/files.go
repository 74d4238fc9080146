package database

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared/fs"
)

// LocalMigrationsDir is where a project keeps its migration sources.
var LocalMigrationsDir = filepath.Join("server", "database", "migrations")

// ListMigrationFiles returns migration names (without .sql) found in dir, in apply order.
// A missing directory yields no names.
func ListMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".sql"))
	}
	assets.SortMigrations(names)
	return names, nil
}

// NextMigrationNumber is one past the highest numeric prefix, zero padded to four digits.
// Gaps are never filled.
func NextMigrationNumber(names []string) string {
	highest := 0
	for _, name := range names {
		if n := assets.MigrationNumber(name); n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%04d", highest+1)
}

var (
	slugInvalid    = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugLeading    = regexp.MustCompile(`^-+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify turns a free-form name into a file-safe slug, "migration" when nothing survives.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugLeading.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	if s == "" {
		return "migration"
	}
	return s
}

// CreateMigration writes a blank numbered migration into dir and returns its path.
func CreateMigration(dir, name string, now time.Time) (string, error) {
	existing, err := ListMigrationFiles(dir)
	if err != nil {
		return "", err
	}
	number := NextMigrationNumber(existing)
	fileName := fmt.Sprintf("%s_%s.sql", number, Slugify(name))

	p := filepath.Join(dir, fileName)
	header := fmt.Sprintf("-- Migration number: %s \t %s\n", number, now.UTC().Format("2006-01-02T15:04:05.000Z"))
	if err := fs.NewFileWriter(false, false).Write(p, []byte(header)); err != nil {
		if errors.Is(err, fs.ErrExists) {
			return "", fmt.Errorf("migration %s already exists", p)
		}
		return "", fmt.Errorf("write migration: %w", err)
	}
	logger.Debug("Created %s", p)
	return p, nil
}
