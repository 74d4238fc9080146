package api

import (
	"encoding/json"
	"strings"

	"nuxthub/cli/internal/assets"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Project struct {
	ID               int64  `json:"id"`
	Key              string `json:"key"`
	Slug             string `json:"slug"`
	TeamSlug         string `json:"teamSlug"`
	ProductionBranch string `json:"productionBranch"`
	URL              string `json:"url"`
	PreviewURL       string `json:"previewUrl"`
}

// EnvURL returns the deployment URL for env, empty when there is none yet.
func (p *Project) EnvURL(env shared.Environment) string {
	if env == shared.EnvProduction {
		return p.URL
	}
	return p.PreviewURL
}

// DashboardURL is the project's page on the hub.
func (p *Project) DashboardURL(hubURL string) string {
	return strings.TrimRight(hubURL, "/") + "/" + p.TeamSlug + "/" + p.Slug
}

// Environment picks the deploy environment for a git branch. Production is
// used when the branch is the production branch. forceProduction rewrites the
// branch to the production branch; forcePreview suffixes it with -preview
// when it would otherwise collide with production.
func (p *Project) Environment(branch string, forceProduction, forcePreview bool) (shared.Environment, string) {
	if branch == "" {
		branch = "main"
	}
	env := shared.EnvPreview
	if branch == p.ProductionBranch {
		env = shared.EnvProduction
	}
	switch {
	case forceProduction:
		return shared.EnvProduction, p.ProductionBranch
	case forcePreview:
		if branch == p.ProductionBranch {
			branch += "-preview"
		}
		return shared.EnvPreview, branch
	}
	return env, branch
}

type PrepareRequest struct {
	Config         json.RawMessage   `json:"config"`
	PublicManifest map[string]string `json:"publicManifest"`
}

// DeploymentSession is returned by prepare and shared read-only by the rest of the deploy.
type DeploymentSession struct {
	DeploymentKey       string   `json:"deploymentKey"`
	MissingPublicHashes []string `json:"missingPublicHashes"`
	UploadToken         string   `json:"cloudflareUploadJwt"`
}

type CompleteRequest struct {
	DeploymentKey string              `json:"deploymentKey"`
	Git           git.Info            `json:"git"`
	ServerFiles   []assets.InlineFile `json:"serverFiles"`
	MetaFiles     []assets.InlineFile `json:"metaFiles"`
}

type Deployment struct {
	URL           string `json:"url"`
	PrimaryURL    string `json:"primaryUrl"`
	IsFirstDeploy bool   `json:"isFirstDeploy"`
}

// PublicURL prefers the primary (custom domain) URL.
func (d *Deployment) PublicURL() string {
	if d.PrimaryURL != "" {
		return d.PrimaryURL
	}
	return d.URL
}

// LogSession is a live tail created on the edge.
type LogSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
