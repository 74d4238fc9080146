package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nuxthub/cli/internal/database"
	"nuxthub/shared"
)

type queryRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params,omitempty"`
}

type queryResult struct {
	Results []json.RawMessage `json:"results"`
}

// decodeResults accepts both a single result object and an array of them.
// Only the first statement's rows are returned.
func decodeResults(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if body[0] == '[' {
		var many []queryResult
		if err := json.Unmarshal(body, &many); err != nil {
			return nil, fmt.Errorf("decode query results: %w", err)
		}
		if len(many) == 0 {
			return nil, nil
		}
		return many[0].Results, nil
	}
	var one queryResult
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return one.Results, nil
}

func runQuery(ctx context.Context, r *resty.Request, path, query string, params []any) ([]json.RawMessage, error) {
	resp, err := r.SetContext(ctx).
		SetBody(queryRequest{Query: query, Params: params}).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, toAPIError(resp)
	}
	return decodeResults(resp.Body())
}

// ProjectDatabase queries the database of a hosted project environment.
type ProjectDatabase struct {
	client *Client
	key    string
	env    shared.Environment
}

var _ database.Querier = (*ProjectDatabase)(nil)

func (c *Client) Database(projectKey string, env shared.Environment) *ProjectDatabase {
	return &ProjectDatabase{client: c, key: projectKey, env: env}
}

func (d *ProjectDatabase) Query(ctx context.Context, query string, params ...any) ([]json.RawMessage, error) {
	path := fmt.Sprintf("/projects/%s/database/%s/query", url.PathEscape(d.key), d.env)
	return runQuery(ctx, d.client.http.R(), path, query, params)
}

// SelfHostedDatabase queries a running project directly, for local development
// or self-hosted deployments authenticated with the project secret key.
type SelfHostedDatabase struct {
	http *resty.Client
	url  string
}

var _ database.Querier = (*SelfHostedDatabase)(nil)

func NewSelfHostedDatabase(projectURL, secretKey string) *SelfHostedDatabase {
	c := resty.New().
		SetBaseURL(strings.TrimRight(projectURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", shared.UserAgent()).
		SetTimeout(time.Minute)
	if secretKey != "" {
		c.SetAuthToken(secretKey)
	}
	return &SelfHostedDatabase{http: c, url: strings.TrimRight(projectURL, "/")}
}

func (d *SelfHostedDatabase) URL() string { return d.url }

func (d *SelfHostedDatabase) Query(ctx context.Context, query string, params ...any) ([]json.RawMessage, error) {
	rows, err := runQuery(ctx, d.http.R(), "/api/_hub/database/query", query, params)
	if err != nil && !isAPIError(err) {
		hint := ""
		if strings.Contains(d.url, "localhost:") {
			hint = ", make sure the Nuxt development server is running with `npx nuxt dev`"
		}
		return nil, fmt.Errorf("could not connect to %s/api/_hub/database/query%s: %w", d.url, hint, err)
	}
	return rows, err
}

func isAPIError(err error) bool {
	var apiErr *shared.APIError
	return errors.As(err, &apiErr)
}
