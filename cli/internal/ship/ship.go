package ship

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nuxthub/cli/internal/api"
	"nuxthub/cli/internal/assets"
	"nuxthub/cli/internal/database"
	"nuxthub/cli/internal/poll"
	"nuxthub/cli/internal/upload"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

var ShipLogs = shared.PackageLogger("ship", "🚢 SHIP")

// DeployAPI is the part of the management API a deployment needs.
type DeployAPI interface {
	PrepareDeploy(ctx context.Context, p *api.Project, env shared.Environment, req api.PrepareRequest) (*api.DeploymentSession, error)
	CompleteDeploy(ctx context.Context, p *api.Project, env shared.Environment, req api.CompleteRequest) (*api.Deployment, error)
}

// TargetFactory builds the upload target for a prepared session.
type TargetFactory func(ctx context.Context, session *api.DeploymentSession) (upload.Target, error)

// CloudflareTargets uploads to the edge asset store with the session's upload token.
func CloudflareTargets(edgeURL string) TargetFactory {
	return func(_ context.Context, session *api.DeploymentSession) (upload.Target, error) {
		return upload.NewCloudflareTarget(edgeURL, session.UploadToken), nil
	}
}

// ReadinessFunc waits for a fresh deployment to be reachable.
type ReadinessFunc func(ctx context.Context, url string) error

// WaitReady waits for DNS and then HTTP. Timeouts are reported but not fatal.
func WaitReady(ctx context.Context, url string) error {
	if err := poll.DNS(ctx, url, poll.WithInitialDelay(10*time.Second)); err != nil {
		if !errors.Is(err, poll.ErrTimeout) {
			return err
		}
		ShipLogs.Warn("Timed out while waiting for %s, try accessing it in a few minutes", url)
		return nil
	}
	if err := poll.HTTP(ctx, url); err != nil {
		if !errors.Is(err, poll.ErrTimeout) {
			return err
		}
		ShipLogs.Warn("Deployment is not answering yet, try accessing %s in a few minutes", url)
	}
	return nil
}

// Options describes one deploy run.
type Options struct {
	// Dir is the build output directory.
	Dir     string
	Project *api.Project
	Env     shared.Environment
	Git     git.Info
}

// Result reports what a run achieved, including partial progress on failure.
type Result struct {
	Deployment *api.Deployment
	Uploaded   int
	Migrations *database.ReconcileResult
	Queries    []string
}

type Deployer struct {
	api        DeployAPI
	database   func(env shared.Environment) database.Querier
	newTarget  TargetFactory
	uploadOpts []upload.Option
	ready      ReadinessFunc
	now        func() time.Time
}

type Option func(*Deployer)

func WithTargetFactory(f TargetFactory) Option { return func(d *Deployer) { d.newTarget = f } }

func WithUploadOptions(opts ...upload.Option) Option {
	return func(d *Deployer) { d.uploadOpts = append(d.uploadOpts, opts...) }
}

// WithReadiness replaces the post-deploy readiness wait; nil disables it.
func WithReadiness(f ReadinessFunc) Option { return func(d *Deployer) { d.ready = f } }

func WithClock(now func() time.Time) Option { return func(d *Deployer) { d.now = now } }

// New returns a deployer. db resolves the database of an environment for migrations.
func New(client DeployAPI, db func(env shared.Environment) database.Querier, opts ...Option) *Deployer {
	d := &Deployer{
		api:       client,
		database:  db,
		newTarget: CloudflareTargets(upload.DefaultEdgeURL),
		ready:     WaitReady,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deploy runs catalog, prepare, upload, complete, migrations, queries and
// readiness in order. The first fatal error aborts the rest; nothing already
// uploaded or applied is rolled back.
func (d *Deployer) Deploy(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	p := opts.Project

	ShipLogs.Info("=== PHASE 1: Catalog build output ===")
	catalog, err := assets.NewCatalog(opts.Dir)
	if err != nil {
		return res, err
	}
	hubConfig, err := catalog.Config()
	if err != nil {
		return res, err
	}
	rawConfig, _ := catalog.Get(assets.ConfigPath)
	public := catalog.PublicFiles()
	ShipLogs.Debug("%d public, %d server, %d meta files", len(public), len(catalog.ServerFiles()), len(catalog.MetaFiles()))

	ShipLogs.Info("=== PHASE 2: Prepare %s deployment of %s ===", opts.Env, p.Slug)
	session, err := d.api.PrepareDeploy(ctx, p, opts.Env, api.PrepareRequest{
		Config:         json.RawMessage(rawConfig.Data),
		PublicManifest: catalog.Manifest(),
	})
	if err != nil {
		return res, fmt.Errorf("prepare deployment: %w", err)
	}

	ShipLogs.Info("=== PHASE 3: Upload assets ===")
	missing := missingFiles(public, session.MissingPublicHashes)
	if err := d.upload(ctx, session, missing); err != nil {
		return res, err
	}
	res.Uploaded = len(missing)

	ShipLogs.Info("=== PHASE 4: Complete deployment ===")
	deployment, err := d.api.CompleteDeploy(ctx, p, opts.Env, api.CompleteRequest{
		DeploymentKey: session.DeploymentKey,
		Git:           opts.Git,
		ServerFiles:   inline(catalog.ServerFiles()),
		MetaFiles:     inline(catalog.MetaFiles()),
	})
	if err != nil {
		return res, fmt.Errorf("complete deployment: %w", err)
	}
	res.Deployment = deployment
	ShipLogs.Success("Deployed %s to %s", p.Slug, opts.Env)

	if hubConfig.Enabled("database") && d.database != nil {
		ShipLogs.Info("=== PHASE 5: Database migrations ===")
		q := d.database(opts.Env)
		res.Migrations, err = database.NewReconciler(q, catalog).Reconcile(ctx, catalog.MigrationNames())
		if err != nil {
			return res, err
		}
		if len(catalog.QueryNames()) > 0 {
			res.Queries, err = database.ApplyQueries(ctx, q, catalog)
			if err != nil {
				return res, err
			}
		}
	}

	ShipLogs.Success("Deployment is ready at %s", deployment.PublicURL())
	if deployment.IsFirstDeploy {
		ShipLogs.Info("As this is the first deployment, domain propagation may take a few minutes")
		if d.ready != nil {
			if err := d.ready(ctx, deployment.PublicURL()); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (d *Deployer) upload(ctx context.Context, session *api.DeploymentSession, files []assets.FileArtifact) error {
	if len(files) == 0 {
		ShipLogs.Info("All assets are already uploaded")
		return nil
	}
	if _, err := upload.CheckToken(session.UploadToken, d.now()); err != nil {
		return err
	}
	target, err := d.newTarget(ctx, session)
	if err != nil {
		return fmt.Errorf("create upload target: %w", err)
	}

	ShipLogs.Info("Uploading %d files (%s)", len(files), shared.FormatBytes(assets.TotalSize(files)))
	uploader := upload.New(target, d.uploadOpts...)
	return uploader.Upload(ctx, files, func(p upload.Progress) {
		ShipLogs.Progress(p.FilesUploaded, p.TotalFiles, fmt.Sprintf("Uploading (%d/%d)", p.FilesUploaded, p.TotalFiles))
	})
}

// missingFiles keeps the files whose hash the server asked for, in catalog order.
func missingFiles(files []assets.FileArtifact, hashes []string) []assets.FileArtifact {
	want := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		want[h] = struct{}{}
	}
	var out []assets.FileArtifact
	for _, f := range files {
		if _, ok := want[f.Hash]; ok {
			out = append(out, f)
		}
	}
	return out
}

func inline(files []assets.FileArtifact) []assets.InlineFile {
	out := make([]assets.InlineFile, 0, len(files))
	for _, f := range files {
		out = append(out, f.Inline())
	}
	return out
}
