package cmd

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/api"
	"nuxthub/cli/internal/build"
	"nuxthub/cli/internal/database"
	"nuxthub/cli/internal/envstore"
	"nuxthub/cli/internal/ship"
	"nuxthub/cli/internal/upload"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

var (
	runBuild       bool
	forceProd      bool
	forcePreview   bool
	dotenvFile     string
	edgeURL        string
	assetsS3       upload.S3Options
	uploadParallel int
)

var deployCmd = &cobra.Command{
	Use:     "deploy [dir]",
	Aliases: []string{"ship"},
	Short:   "Build and deploy the project to NuxtHub",
	Long: `The deploy command handles the complete deployment lifecycle:
- Builds the project with nuxi
- Uploads the public assets the platform does not have yet
- Ships server and metadata files
- Applies pending database migrations and queries`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&runBuild, "build", true, "Build the project before deploying")
	deployCmd.Flags().BoolVar(&forceProd, "production", false, "Force the production environment")
	deployCmd.Flags().BoolVar(&forcePreview, "preview", false, "Force the preview environment")
	deployCmd.Flags().StringVar(&dotenvFile, "dotenv", "", "Dotenv file to load instead of .env, also passed to the build")
	deployCmd.Flags().StringVar(&edgeURL, "edge-url", upload.DefaultEdgeURL, "Edge API used for asset uploads")
	deployCmd.Flags().IntVar(&uploadParallel, "concurrency", 0, "Number of concurrent upload batches")
	deployCmd.Flags().StringVar(&assetsS3.Bucket, "assets-bucket", "", "Upload public assets to this S3 compatible bucket instead")
	deployCmd.Flags().StringVar(&assetsS3.Endpoint, "assets-endpoint", "", "Endpoint of the assets bucket")
	deployCmd.Flags().StringVar(&assetsS3.Region, "assets-region", "", "Region of the assets bucket")
	deployCmd.Flags().StringVar(&assetsS3.Prefix, "assets-prefix", "", "Key prefix inside the assets bucket")
	deployCmd.MarkFlagsMutuallyExclusive("production", "preview")

	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	dir := projectDir(args)
	s, err := deploySession(dir)
	if err != nil {
		return err
	}
	project, err := s.requireProject(ctx)
	if err != nil {
		return err
	}

	info := git.Collect(ctx, dir)
	env, branch := project.Environment(info.Branch, forceProd, forcePreview)
	info.Branch = branch
	if info.Dirty {
		CmdLogs.Warn("Deploying with uncommitted changes")
	}
	CmdLogs.Info("Deploying %s to %s (branch %s)", bold(project.Slug), env, branch)

	if runBuild {
		if err := build.Nuxi(ctx, dir, dotenvFile); err != nil {
			return err
		}
	}

	deployer := ship.New(s.client, func(env shared.Environment) database.Querier {
		return s.client.Database(project.Key, env)
	}, deployOptions()...)

	result, err := deployer.Deploy(ctx, ship.Options{
		Dir:     filepath.Join(dir, build.OutputDir),
		Project: project,
		Env:     env,
		Git:     info,
	})
	reportDeploy(result)
	return err
}

// deploySession honours --dotenv for the project key and token, not only for the build.
func deploySession(dir string) (*session, error) {
	return newSession(dir, envstore.WithFile(dotenvFile))
}

func deployOptions() []ship.Option {
	var opts []ship.Option
	if assetsS3.Bucket != "" {
		assetsS3.UsePathStyle = assetsS3.Endpoint != ""
		s3opts := assetsS3
		opts = append(opts, ship.WithTargetFactory(func(ctx context.Context, _ *api.DeploymentSession) (upload.Target, error) {
			return upload.NewS3Target(ctx, s3opts)
		}))
	} else if edgeURL != upload.DefaultEdgeURL {
		opts = append(opts, ship.WithTargetFactory(ship.CloudflareTargets(edgeURL)))
	}
	if uploadParallel > 0 {
		opts = append(opts, ship.WithUploadOptions(upload.WithConcurrency(uploadParallel)))
	}
	return opts
}

func reportDeploy(res *ship.Result) {
	if res == nil {
		return
	}
	rows := [][]string{{"Uploaded assets", strconv.Itoa(res.Uploaded)}}
	if res.Migrations != nil {
		rows = append(rows, []string{"Migrations applied", strconv.Itoa(len(res.Migrations.Applied))})
	}
	if len(res.Queries) > 0 {
		rows = append(rows, []string{"Queries applied", strconv.Itoa(len(res.Queries))})
	}
	if res.Deployment != nil {
		rows = append(rows, []string{"URL", res.Deployment.PublicURL()})
	}
	CmdLogs.Table([]string{"Deploy", "Result"}, rows)
}
