package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/api"
	"nuxthub/cli/internal/envstore"
)

var (
	linkTeam    string
	linkProject string
)

var linkCmd = &cobra.Command{
	Use:   "link [dir]",
	Short: "Link a local directory to a NuxtHub project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(projectDir(args))
		if err != nil {
			return err
		}
		if _, err := s.requireUser(ctx); err != nil {
			return err
		}
		if key, ok, _ := s.env.Get(envstore.ProjectKeyVar); ok && key != "" {
			overwrite, err := prompter().YesNo(fmt.Sprintf("This directory is already linked (%s), link it again?", key), false)
			if err != nil || !overwrite {
				return err
			}
		}

		project, err := pickProject(ctx, s.client)
		if err != nil {
			return err
		}
		if err := s.env.Set(envstore.ProjectKeyVar, project.Key); err != nil {
			return err
		}
		CmdLogs.Success("Project %s linked", bold(project.Slug))
		return nil
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink [dir]",
	Short: "Unlink a local directory from its NuxtHub project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := envstore.New(projectDir(args))
		removed, err := store.Unset(envstore.ProjectKeyVar)
		if err != nil {
			return err
		}
		if !removed {
			CmdLogs.Info("This directory is not linked to any project")
			return nil
		}
		CmdLogs.Success("Project unlinked")
		return nil
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkTeam, "team", "", "Slug of the team owning the project")
	linkCmd.Flags().StringVar(&linkProject, "project", "", "Slug of the project to link")
	rootCmd.AddCommand(linkCmd, unlinkCmd)
}

// pickProject resolves the project named by --team and --project. When a slug
// is missing the available choices are listed instead.
func pickProject(ctx context.Context, client *api.Client) (*api.Project, error) {
	if linkTeam == "" {
		teams, err := client.Teams(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([][]string, 0, len(teams))
		for _, t := range teams {
			rows = append(rows, []string{t.Slug, t.Name})
		}
		CmdLogs.Table([]string{"Team", "Name"}, rows)
		return nil, errors.New("link: choose a team with --team")
	}

	projects, err := client.Projects(ctx, linkTeam)
	if err != nil {
		return nil, err
	}
	if linkProject == "" {
		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			rows = append(rows, []string{p.Slug, p.URL})
		}
		CmdLogs.Table([]string{"Project", "URL"}, rows)
		return nil, errors.New("link: choose a project with --project")
	}
	for i := range projects {
		if projects[i].Slug == linkProject {
			return &projects[i], nil
		}
	}
	return nil, fmt.Errorf("project %q not found in team %q", linkProject, linkTeam)
}
