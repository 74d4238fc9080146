package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/api"
	"nuxthub/cli/internal/database"
	"nuxthub/shared"
	"nuxthub/shared/config"
)

var (
	dbProduction bool
	dbPreview    bool
	dbLocal      bool
	dbURL        string
)

var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Manage the project database",
}

var migrationsCmd = &cobra.Command{
	Use:   "migrations",
	Short: "Create and inspect database migrations",
}

var migrationsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new blank migration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(".", database.LocalMigrationsDir)
		p, err := database.CreateMigration(dir, args[0], time.Now())
		if err != nil {
			return err
		}
		CmdLogs.Success("Created %s", cyan(p))
		return nil
	},
}

var migrationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		q, target, err := resolveDatabase(ctx)
		if err != nil {
			return err
		}
		local, err := database.ListMigrationFiles(filepath.Join(".", database.LocalMigrationsDir))
		if err != nil {
			return err
		}
		applied, err := database.FetchAppliedMigrations(ctx, q)
		if err != nil {
			return err
		}

		CmdLogs.Info("Migrations of %s", target)
		rows := make([][]string, 0, len(applied)+len(local))
		for _, m := range applied {
			rows = append(rows, []string{m.Name, green("applied"), m.AppliedTime().Local().Format(time.DateTime)})
		}
		pending := database.Pending(local, applied)
		for _, name := range pending {
			rows = append(rows, []string{name, yellow("pending"), ""})
		}
		if len(rows) == 0 {
			CmdLogs.Info("No migrations found")
			return nil
		}
		CmdLogs.Table([]string{"Migration", "Status", "Applied at"}, rows)
		return nil
	},
}

var migrationsMarkAllCmd = &cobra.Command{
	Use:   "mark-all-applied",
	Short: "Record every local migration as applied without running it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		q, target, err := resolveDatabase(ctx)
		if err != nil {
			return err
		}
		local, err := database.ListMigrationFiles(filepath.Join(".", database.LocalMigrationsDir))
		if err != nil {
			return err
		}
		if err := database.CreateMigrationsTable(ctx, q); err != nil {
			return err
		}
		applied, err := database.FetchAppliedMigrations(ctx, q)
		if err != nil {
			return err
		}
		pending := database.Pending(local, applied)
		if len(pending) == 0 {
			CmdLogs.Success("All migrations are already marked as applied on %s", target)
			return nil
		}

		ok, err := prompter().YesNo(fmt.Sprintf("Mark %d migration(s) as applied on %s?", len(pending), target), true)
		if err != nil {
			return err
		}
		if !ok {
			CmdLogs.Info("Aborted")
			return nil
		}
		if err := database.MarkAllApplied(ctx, q, pending); err != nil {
			return err
		}
		CmdLogs.Success("Marked %d migration(s) as applied on %s", len(pending), target)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{migrationsListCmd, migrationsMarkAllCmd} {
		c.Flags().BoolVar(&dbProduction, "production", false, "Use the production database")
		c.Flags().BoolVar(&dbPreview, "preview", false, "Use the preview database")
		c.Flags().BoolVar(&dbLocal, "local", false, "Use the local development database (default)")
		c.Flags().StringVar(&dbURL, "url", "", "URL of a self-hosted project to query")
		c.MarkFlagsMutuallyExclusive("production", "preview", "local")
	}

	migrationsCmd.AddCommand(migrationsCreateCmd, migrationsListCmd, migrationsMarkAllCmd)
	databaseCmd.AddCommand(migrationsCmd)
	rootCmd.AddCommand(databaseCmd)
}

// resolveDatabase picks the database the flags point at and describes it for output.
func resolveDatabase(ctx context.Context) (database.Querier, string, error) {
	s, err := newSession(".")
	if err != nil {
		return nil, "", err
	}

	env := shared.EnvLocal
	switch {
	case dbProduction:
		env = shared.EnvProduction
	case dbPreview:
		env = shared.EnvPreview
	}

	if env == shared.EnvLocal || dbURL != "" {
		url := dbURL
		if url == "" {
			url = s.settings.ProjectURL
		}
		if url == "" {
			url = config.DefaultProjectURL
		}
		db := api.NewSelfHostedDatabase(url, s.settings.ProjectSecretKey)
		return db, db.URL(), nil
	}

	project, err := s.requireProject(ctx)
	if err != nil {
		return nil, "", err
	}
	if project.EnvURL(env) == "" {
		return nil, "", fmt.Errorf("%w (%s)", shared.ErrNoDeployment, env)
	}
	return s.client.Database(project.Key, env), fmt.Sprintf("%s %s", project.Slug, env), nil
}
