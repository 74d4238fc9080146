package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLoggedIn  = errors.New("auth: not logged in")
	ErrNotLinked    = errors.New("project: directory is not linked to a project")
	ErrTokenExpired = errors.New("upload: upload token has expired")
	ErrNoDeployment = errors.New("project: no deployment for this environment")
)

// NotFoundError reports a required local artifact that does not exist.
type NotFoundError struct {
	Path string
	Hint string
}

func (e *NotFoundError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s not found, %s", e.Path, e.Hint)
	}
	return fmt.Sprintf("%s not found", e.Path)
}

// AssetTooLargeError lists every file above the per-object upload ceiling.
type AssetTooLargeError struct {
	Limit int64
	Files []OversizedFile
}

type OversizedFile struct {
	Path string
	Size int64
}

func (e *AssetTooLargeError) Error() string {
	parts := make([]string, 0, len(e.Files))
	for _, f := range e.Files {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Path, FormatBytes(f.Size)))
	}
	return fmt.Sprintf("%d asset(s) exceed the %s limit: %s", len(e.Files), FormatBytes(e.Limit), strings.Join(parts, ", "))
}

// UploadError is returned when a batch exhausted its retry attempts.
type UploadError struct {
	Paths    []string
	Attempts int
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %d file(s) after %d attempt(s): %v", len(e.Paths), e.Attempts, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// RemoteQueryError is a database query that failed remotely. Migration is empty for ad-hoc queries.
type RemoteQueryError struct {
	Migration string
	Query     string
	Applied   []string
	Err       error
}

func (e *RemoteQueryError) Error() string {
	switch {
	case e.Migration != "":
		return fmt.Sprintf("migration %s failed: %v", e.Migration, e.Err)
	case e.Query != "":
		return fmt.Sprintf("query %s failed: %v", e.Query, e.Err)
	}
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

// APIError carries the message of a failed management or edge API call.
type APIError struct {
	StatusCode int
	Message    string
	Issues     []string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s", e.Message)
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
