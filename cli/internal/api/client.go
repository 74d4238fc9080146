package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"nuxthub/shared"
)

var logger = shared.PackageLogger("api", "🌐 API")

// Client talks to the NuxtHub management API.
type Client struct {
	http *resty.Client
}

type Option func(*resty.Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// New returns a client for hubURL authenticated with the user token.
func New(hubURL, token string, opts ...Option) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(hubURL, "/")+"/api").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", shared.UserAgent()).
		SetTimeout(5 * time.Minute).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader("X-Request-Id", uuid.NewString())
			return nil
		})
	if token != "" {
		c.SetAuthToken(token)
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Client{http: c}
}

// errorBody is the error shape of the API. Validation failures carry zod issues in data.
type errorBody struct {
	Message       string `json:"message"`
	StatusMessage string `json:"statusMessage"`
	Data          struct {
		Name   string `json:"name"`
		Issues []struct {
			Path    []any  `json:"path"`
			Message string `json:"message"`
		} `json:"issues"`
	} `json:"data"`
}

func toAPIError(resp *resty.Response) error {
	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	apiErr := &shared.APIError{StatusCode: resp.StatusCode(), Message: body.Message}
	if apiErr.Message == "" {
		apiErr.Message = body.StatusMessage
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(resp.Status())
	}
	for _, issue := range body.Data.Issues {
		if len(issue.Path) == 0 {
			apiErr.Issues = append(apiErr.Issues, issue.Message)
			continue
		}
		parts := make([]string, len(issue.Path))
		for i, p := range issue.Path {
			parts[i] = fmt.Sprint(p)
		}
		apiErr.Issues = append(apiErr.Issues, fmt.Sprintf("%s: %s", strings.Join(parts, "."), issue.Message))
	}
	logger.Debug("%s %s -> %d %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), apiErr.Message)
	return apiErr
}

// do runs the request and maps transport and HTTP failures to errors.
func do(r *resty.Request, method, path string) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return toAPIError(resp)
	}
	return nil
}
