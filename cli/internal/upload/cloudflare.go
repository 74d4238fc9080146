package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared"
)

// DefaultEdgeURL is the edge API base used for asset uploads.
const DefaultEdgeURL = "https://api.cloudflare.com/client/v4"

// CloudflareTarget uploads base64 encoded assets to the edge asset store
// authenticated with the upload JWT handed out by the prepare call.
type CloudflareTarget struct {
	client *resty.Client
}

var _ Target = (*CloudflareTarget)(nil)
var _ Finalizer = (*CloudflareTarget)(nil)

type assetEntry struct {
	Path     string        `json:"path"`
	Key      string        `json:"key"`
	Value    string        `json:"value"`
	Base64   bool          `json:"base64"`
	Metadata assetMetadata `json:"metadata"`
}

type assetMetadata struct {
	ContentType string `json:"contentType"`
}

type edgeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type edgeEnvelope struct {
	Success bool        `json:"success"`
	Errors  []edgeError `json:"errors"`
	Result  struct {
		SuccessfulKeyCount int      `json:"successful_key_count"`
		UnsuccessfulKeys   []string `json:"unsuccessful_keys"`
	} `json:"result"`
}

func NewCloudflareTarget(baseURL, uploadToken string) *CloudflareTarget {
	if baseURL == "" {
		baseURL = DefaultEdgeURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(uploadToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	return &CloudflareTarget{client: client}
}

func (t *CloudflareTarget) UploadBatch(ctx context.Context, batch []assets.FileArtifact) error {
	entries := make([]assetEntry, 0, len(batch))
	for _, f := range batch {
		entries = append(entries, assetEntry{
			Path:     f.Path,
			Key:      f.Hash,
			Value:    f.Base64(),
			Base64:   true,
			Metadata: assetMetadata{ContentType: f.ContentType},
		})
	}

	var out edgeEnvelope
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(entries).
		SetResult(&out).
		SetError(&out).
		Post("/pages/assets/upload")
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	if err := checkEnvelope(resp, &out); err != nil {
		return err
	}
	if n := len(out.Result.UnsuccessfulKeys); n > 0 {
		return fmt.Errorf("edge rejected %d of %d keys", n, len(entries))
	}
	logger.Trace("Stored %d keys", out.Result.SuccessfulKeyCount)
	return nil
}

// Finalize marks the hashes as live so the edge keeps serving them.
func (t *CloudflareTarget) Finalize(ctx context.Context, hashes []string) error {
	var out edgeEnvelope
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string][]string{"hashes": hashes}).
		SetResult(&out).
		SetError(&out).
		Post("/pages/assets/upsert-hashes")
	if err != nil {
		return fmt.Errorf("upsert hashes request: %w", err)
	}
	return checkEnvelope(resp, &out)
}

func checkEnvelope(resp *resty.Response, out *edgeEnvelope) error {
	if !resp.IsError() && out.Success {
		return nil
	}
	msgs := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		msgs = append(msgs, fmt.Sprintf("%s (%d)", e.Message, e.Code))
	}
	msg := strings.Join(msgs, "; ")
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	return &shared.APIError{StatusCode: resp.StatusCode(), Message: msg}
}
