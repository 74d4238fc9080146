package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/tail"
	"nuxthub/shared"
	"nuxthub/shared/git"
)

var (
	logsProduction bool
	logsPreview    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Display the live logs of a deployment",
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

		env, _ := project.Environment(git.Collect(ctx, ".").Branch, logsProduction, logsPreview)
		url := project.EnvURL(env)
		if url == "" {
			return fmt.Errorf("%w (%s), run `nuxthub deploy --%s` first", shared.ErrNoDeployment, env, env)
		}
		CmdLogs.Success("Linked to %s project available at %s", bold(project.Slug), cyan(url))

		logs, err := s.client.CreateLogs(ctx, project, env)
		if err != nil {
			return err
		}
		defer func() {
			// ctx is already canceled on Ctrl+C
			cleanup, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := s.client.DeleteLogs(cleanup, project, env, logs.ID); err != nil {
				CmdLogs.Debug("Could not delete log session: %v", err)
			}
		}()

		CmdLogs.Info("Connecting to %s deployment...", env)
		session, err := tail.Connect(ctx, logs.URL, verbose)
		if err != nil {
			return err
		}
		defer session.Close()

		CmdLogs.Success("Connected, waiting for logs (Ctrl+C to stop)")
		return session.Stream(ctx, func(ev *tail.Event) {
			for _, line := range ev.Lines() {
				fmt.Println(line)
			}
		})
	},
}

func init() {
	logsCmd.Flags().BoolVar(&logsProduction, "production", false, "Display the logs of the production deployment")
	logsCmd.Flags().BoolVar(&logsPreview, "preview", false, "Display the logs of the latest preview deployment")
	logsCmd.MarkFlagsMutuallyExclusive("production", "preview")
	rootCmd.AddCommand(logsCmd)
}
