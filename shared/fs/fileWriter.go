package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"nuxthub/shared"
)

var ErrExists = errors.New("fs: file already exists")

var fsLogger = shared.PackageLogger("fs", "📝 FS")

// FileWriter creates generated project files.
type FileWriter struct {
	force  bool
	dryRun bool
	perm   os.FileMode
}

func NewFileWriter(force, dryRun bool) *FileWriter {
	return &FileWriter{force: force, dryRun: dryRun, perm: 0o644}
}

// Write creates path and its parent directories. Existing files are only
// replaced when the writer was created with force.
func (fw *FileWriter) Write(path string, content []byte) error {
	_, err := os.Stat(path)
	switch {
	case err == nil && !fw.force:
		return fmt.Errorf("%w: %s", ErrExists, path)
	case err != nil && !errors.Is(err, iofs.ErrNotExist):
		return err
	}

	if fw.dryRun {
		fsLogger.Info("Would create %s", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, fw.perm); err != nil {
		return err
	}
	fsLogger.Debug("Created %s", path)
	return nil
}
