package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"nuxthub/shared"
)

// User returns the account behind the token. ErrNotLoggedIn is returned for a rejected token.
func (c *Client) User(ctx context.Context) (*User, error) {
	var user User
	err := do(c.http.R().SetContext(ctx).SetResult(&user), http.MethodGet, "/user")
	if isStatus(err, http.StatusUnauthorized) {
		return nil, shared.ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RevokeToken invalidates the token the client was created with.
func (c *Client) RevokeToken(ctx context.Context) error {
	return do(c.http.R().SetContext(ctx), http.MethodDelete, "/user/token")
}

func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var teams []Team
	if err := do(c.http.R().SetContext(ctx).SetResult(&teams), http.MethodGet, "/teams"); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) Projects(ctx context.Context, teamSlug string) ([]Project, error) {
	var projects []Project
	path := fmt.Sprintf("/teams/%s/projects", url.PathEscape(teamSlug))
	if err := do(c.http.R().SetContext(ctx).SetResult(&projects), http.MethodGet, path); err != nil {
		return nil, err
	}
	return projects, nil
}

// Project resolves a project key. ErrNotLinked is returned when the key is unknown.
func (c *Client) Project(ctx context.Context, key string) (*Project, error) {
	if key == "" {
		return nil, shared.ErrNotLinked
	}
	var project Project
	err := do(c.http.R().SetContext(ctx).SetResult(&project), http.MethodGet, "/projects/"+url.PathEscape(key))
	if isStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w (key %s)", shared.ErrNotLinked, key)
	}
	if err != nil {
		return nil, err
	}
	if project.Key == "" {
		project.Key = key
	}
	return &project, nil
}

func envPath(p *Project, env shared.Environment, suffix string) string {
	return fmt.Sprintf("/teams/%s/projects/%s/%s/%s", url.PathEscape(p.TeamSlug), url.PathEscape(p.Slug), env, suffix)
}

// PrepareDeploy opens a deployment session and learns which public hashes are missing remotely.
func (c *Client) PrepareDeploy(ctx context.Context, p *Project, env shared.Environment, req PrepareRequest) (*DeploymentSession, error) {
	var session DeploymentSession
	r := c.http.R().SetContext(ctx).SetBody(req).SetResult(&session)
	if err := do(r, http.MethodPost, envPath(p, env, "deploy/prepare")); err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteDeploy publishes the deployment with its server and meta files.
func (c *Client) CompleteDeploy(ctx context.Context, p *Project, env shared.Environment, req CompleteRequest) (*Deployment, error) {
	var deployment Deployment
	r := c.http.R().SetContext(ctx).SetBody(req).SetResult(&deployment)
	if err := do(r, http.MethodPost, envPath(p, env, "deploy/complete")); err != nil {
		return nil, err
	}
	return &deployment, nil
}

func (c *Client) CreateLogs(ctx context.Context, p *Project, env shared.Environment) (*LogSession, error) {
	var session LogSession
	if err := do(c.http.R().SetContext(ctx).SetResult(&session), http.MethodGet, envPath(p, env, "logs")); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) DeleteLogs(ctx context.Context, p *Project, env shared.Environment, id string) error {
	return do(c.http.R().SetContext(ctx), http.MethodDelete, envPath(p, env, "logs/"+url.PathEscape(id)))
}

func isStatus(err error, status int) bool {
	var apiErr *shared.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
