package cmd

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"nuxthub/cli/internal/api"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

// openURL is swapped in tests.
var openURL = browser.OpenURL

var (
	openProduction bool
	openPreview    bool
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the deployed URL of the linked project in the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(".")
		if err != nil {
			return err
		}
		project, err := s.requireProject(ctx)
		if err != nil {
			return err
		}
		env, _ := project.Environment(git.Collect(ctx, ".").Branch, openProduction, openPreview)
		url, err := deploymentURL(project, env)
		if err != nil {
			return err
		}
		return openInBrowser(url)
	},
}

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Open the NuxtHub dashboard of the linked project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(".")
		if err != nil {
			return err
		}
		project, err := s.requireProject(ctx)
		if err != nil {
			return err
		}
		return openInBrowser(project.DashboardURL(s.settings.HubURL))
	},
}

func init() {
	openCmd.Flags().BoolVar(&openProduction, "production", false, "Open the production deployment")
	openCmd.Flags().BoolVar(&openPreview, "preview", false, "Open the latest preview deployment")
	openCmd.MarkFlagsMutuallyExclusive("production", "preview")
	rootCmd.AddCommand(openCmd, manageCmd)
}

func deploymentURL(project *api.Project, env shared.Environment) (string, error) {
	url := project.EnvURL(env)
	if url == "" {
		return "", fmt.Errorf("%w (%s), run `nuxthub deploy --%s` first", shared.ErrNoDeployment, env, env)
	}
	return url, nil
}

func openInBrowser(url string) error {
	if err := openURL(url); err != nil {
		CmdLogs.Warn("Could not open a browser, visit %s", cyan(url))
		return nil
	}
	CmdLogs.Success("%s opened in the browser", cyan(url))
	return nil
}
