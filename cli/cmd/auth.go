package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nuxthub/cli/internal/api"
	"nuxthub/shared"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with NuxtHub using a personal token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(".")
		if err != nil {
			return err
		}
		if s.settings.UserToken != "" && loginToken == "" {
			if user, err := s.client.User(ctx); err == nil {
				CmdLogs.Info("Already logged in as %s", bold(user.Name))
				return nil
			}
		}

		token := loginToken
		if token == "" {
			CmdLogs.Info("Create a token at %s/user/settings", s.settings.HubURL)
			if token, err = prompter().Secret("Token"); err != nil {
				return err
			}
		}
		if token == "" {
			return errors.New("login: a token is required")
		}

		user, err := api.New(s.settings.HubURL, token).User(ctx)
		if err != nil {
			return err
		}
		source, err := s.tokens.Save(token)
		if err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		CmdLogs.Debug("Token stored in %s", source)
		CmdLogs.Success("Logged in as %s", bold(user.Name))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(".")
		if err != nil {
			return err
		}
		if s.settings.UserToken == "" {
			CmdLogs.Info("Not currently logged in")
			return nil
		}
		if err := s.client.RevokeToken(ctx); err != nil {
			CmdLogs.Debug("Could not revoke token: %v", err)
		}
		if err := s.tokens.Clear(); err != nil {
			return err
		}
		CmdLogs.Success("You have been logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s, err := newSession(".")
		if err != nil {
			return err
		}
		user, err := s.requireUser(ctx)
		if errors.Is(err, shared.ErrNotLoggedIn) {
			CmdLogs.Info("You are not logged in")
			return nil
		}
		if err != nil {
			return err
		}
		CmdLogs.Info("Logged in as %s (%s)", bold(user.Name), user.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Personal access token")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
