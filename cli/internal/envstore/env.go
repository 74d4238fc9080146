package envstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"nuxthub/shared"
)

var logger = shared.PackageLogger("envstore", "🌱 ENV")

// ProjectKeyVar links a directory to a hosted project.
const ProjectKeyVar = "NUXT_HUB_PROJECT_KEY"

// Store edits one dotenv file in place, keeping unrelated lines and comments intact.
type Store struct {
	path string
}

type Option func(*Store)

// WithFile selects a dotenv file other than .env, relative to the project directory.
func WithFile(name string) Option {
	return func(s *Store) {
		if name == "" {
			return
		}
		if filepath.IsAbs(name) {
			s.path = name
			return
		}
		s.path = filepath.Join(filepath.Dir(s.path), name)
	}
}

func New(projectDir string, opts ...Option) *Store {
	s := &Store{path: filepath.Join(projectDir, ".env")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string { return s.path }

// Load exports the file's variables into the process environment without
// overriding variables that are already set. A missing file is not an error.
func (s *Store) Load() error {
	err := godotenv.Load(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No env file at %s", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}
	logger.Debug("Loaded env from %s", s.path)
	return nil
}

// Read parses the file. A missing file yields an empty map.
func (s *Store) Read() (map[string]string, error) {
	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return env, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	env, err := s.Read()
	if err != nil {
		return "", false, err
	}
	v, ok := env[key]
	return v, ok, nil
}

func (s *Store) raw() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return string(data), nil
}

func assignment(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?:#[ \t]*)?(?:export[ \t]+)?` + regexp.QuoteMeta(key) + `[ \t]*=.*$`)
}

// Set writes key=value, replacing an existing (or commented out) assignment
// or appending one. The process environment is updated too.
func (s *Store) Set(key, value string) error {
	content, err := s.raw()
	if err != nil {
		return err
	}
	line, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	// godotenv quotes strings; plain keys stay readable unquoted
	if !strings.ContainsAny(value, " \t#\"'\\\n$") {
		line = key + "=" + value
	}

	re := assignment(key)
	if loc := re.FindStringIndex(content); loc != nil {
		content = content[:loc[0]] + line + content[loc[1]:]
	} else {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		content += line + "\n"
	}

	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return os.Setenv(key, value)
}

// Unset removes every active assignment of key. It reports whether one was found.
func (s *Store) Unset(key string) (bool, error) {
	content, err := s.raw()
	if err != nil {
		return false, err
	}
	re := regexp.MustCompile(`(?m)^[ \t]*(?:export[ \t]+)?` + regexp.QuoteMeta(key) + `[ \t]*=.*\n?`)
	if !re.MatchString(content) {
		return false, nil
	}
	content = re.ReplaceAllString(content, "")
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", s.path, err)
	}
	return true, os.Unsetenv(key)
}
