package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, "user-token")
}

var project = &Project{Key: "key1", Slug: "blog", TeamSlug: "acme", ProductionBranch: "main"}

func TestUserSendsBearerAndRequestID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Len(t, r.Header.Get("X-Request-Id"), 36)
		assert.Contains(t, r.Header.Get("User-Agent"), "nuxthub-cli/")
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": "Ada", "email": "ada@example.com"})
	})

	user, err := c.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, int64(7), user.ID)
}

func TestUserUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid token"})
	})
	_, err := c.User(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotLoggedIn)
}

func TestProjectNotFoundIsNotLinked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/missing", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Project not found"})
	})
	_, err := c.Project(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotLinked)

	_, err = c.Project(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrNotLinked)
}

func TestTeamsAndProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/teams":
			writeJSON(w, http.StatusOK, []Team{{ID: 1, Name: "Acme", Slug: "acme"}})
		case "/api/teams/acme/projects":
			writeJSON(w, http.StatusOK, []Project{{Slug: "blog", Key: "k"}})
		default:
			http.NotFound(w, r)
		}
	})

	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)

	projects, err := c.Projects(context.Background(), teams[0].Slug)
	require.NoError(t, err)
	assert.Equal(t, "blog", projects[0].Slug)
}

func TestPrepareAndCompleteDeploy(t *testing.T) {
	var complete CompleteRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/teams/acme/projects/blog/preview/deploy/prepare":
			var req PrepareRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "h1", req.PublicManifest["/index.html"])
			assert.JSONEq(t, `{"database":true}`, string(req.Config))
			writeJSON(w, http.StatusOK, map[string]any{
				"deploymentKey":       "dk",
				"missingPublicHashes": []string{"h1"},
				"cloudflareUploadJwt": "jwt",
			})
		case "/api/teams/acme/projects/blog/preview/deploy/complete":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&complete))
			writeJSON(w, http.StatusOK, map[string]any{"url": "https://abc.blog.pages.dev", "isFirstDeploy": true})
		default:
			http.NotFound(w, r)
		}
	})

	session, err := c.PrepareDeploy(context.Background(), project, shared.EnvPreview, PrepareRequest{
		Config:         json.RawMessage(`{"database":true}`),
		PublicManifest: map[string]string{"/index.html": "h1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "dk", session.DeploymentKey)
	assert.Equal(t, []string{"h1"}, session.MissingPublicHashes)
	assert.Equal(t, "jwt", session.UploadToken)

	deployment, err := c.CompleteDeploy(context.Background(), project, shared.EnvPreview, CompleteRequest{
		DeploymentKey: session.DeploymentKey,
		Git:           git.Info{Branch: "feat"},
		ServerFiles:   []assets.InlineFile{{Path: "/_worker.js/index.js", Data: "export default {}", Size: 17, Encoding: "utf-8"}},
	})
	require.NoError(t, err)
	assert.True(t, deployment.IsFirstDeploy)
	assert.Equal(t, "https://abc.blog.pages.dev", deployment.PublicURL())
	assert.Equal(t, "dk", complete.DeploymentKey)
	assert.Equal(t, "feat", complete.Git.Branch)
	require.Len(t, complete.ServerFiles, 1)
}

func TestValidationIssuesAreSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Invalid body",
			"data": map[string]any{
				"name": "ZodError",
				"issues": []map[string]any{
					{"path": []any{"serverFiles", 0, "size"}, "message": "Worker exceeds 10 MiB"},
				},
			},
		})
	})

	_, err := c.CompleteDeploy(context.Background(), project, shared.EnvProduction, CompleteRequest{})
	var apiErr *shared.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid body", apiErr.Message)
	assert.Equal(t, []string{"serverFiles.0.size: Worker exceeds 10 MiB"}, apiErr.Issues)
}

func TestLogsSession(t *testing.T) {
	var deleted string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/teams/acme/projects/blog/production/logs":
			writeJSON(w, http.StatusOK, LogSession{ID: "tail-1", URL: "wss://tail.example.com"})
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	session, err := c.CreateLogs(context.Background(), project, shared.EnvProduction)
	require.NoError(t, err)
	assert.Equal(t, "tail-1", session.ID)
	require.NoError(t, c.DeleteLogs(context.Background(), project, shared.EnvProduction, session.ID))
	assert.Equal(t, "/api/teams/acme/projects/blog/production/logs/tail-1", deleted)
}

func TestProjectEnvironment(t *testing.T) {
	p := &Project{ProductionBranch: "main"}
	tests := []struct {
		name       string
		branch     string
		production bool
		preview    bool
		wantEnv    shared.Environment
		wantBranch string
	}{
		{"production branch", "main", false, false, shared.EnvProduction, "main"},
		{"feature branch", "feat", false, false, shared.EnvPreview, "feat"},
		{"no branch defaults to main", "", false, false, shared.EnvProduction, "main"},
		{"forced production", "feat", true, false, shared.EnvProduction, "main"},
		{"forced preview on production branch", "main", false, true, shared.EnvPreview, "main-preview"},
		{"forced preview on feature branch", "feat", false, true, shared.EnvPreview, "feat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, branch := p.Environment(tt.branch, tt.production, tt.preview)
			assert.Equal(t, tt.wantEnv, env)
			assert.Equal(t, tt.wantBranch, branch)
		})
	}

	assert.Equal(t, "", (&Project{URL: "https://x"}).EnvURL(shared.EnvPreview))
}

func TestProjectDashboardURL(t *testing.T) {
	p := &Project{Slug: "blog", TeamSlug: "acme"}
	assert.Equal(t, "https://admin.hub.nuxt.com/acme/blog", p.DashboardURL("https://admin.hub.nuxt.com/"))
	assert.Equal(t, "http://localhost:3000/acme/blog", p.DashboardURL("http://localhost:3000"))
}
