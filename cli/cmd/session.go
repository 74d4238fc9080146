package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"nuxthub/cli/internal/api"
	"nuxthub/cli/internal/envstore"
	"nuxthub/cli/internal/prompt"
	"nuxthub/cli/internal/secrets"
	"nuxthub/shared"
	"nuxthub/shared/config"
)

var CmdLogs = shared.PackageLogger("cmd", "⚡ NUXTHUB")

// session is the resolved state every command starts from.
type session struct {
	dir      string
	env      *envstore.Store
	tokens   *secrets.TokenStore
	settings *config.Settings
	client   *api.Client
}

// newSession loads the project .env (or the file chosen by opts), the user
// config and the stored token for dir.
func newSession(dir string, opts ...envstore.Option) (*session, error) {
	env := envstore.New(dir, opts...)
	if err := env.Load(); err != nil {
		return nil, err
	}

	configPath, err := config.UserConfigPath()
	if err != nil {
		return nil, err
	}
	user, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	tokens := secrets.NewTokenStore(configPath)
	token, source, err := tokens.Token()
	if err != nil {
		return nil, err
	}
	if token != "" {
		CmdLogs.Debug("Using token from %s", source)
		user.Hub.UserToken = token
	}

	settings := config.Resolve(user)
	return &session{
		dir:      dir,
		env:      env,
		tokens:   tokens,
		settings: settings,
		client:   api.New(settings.HubURL, settings.UserToken),
	}, nil
}

func (s *session) requireUser(ctx context.Context) (*api.User, error) {
	if s.settings.UserToken == "" {
		return nil, shared.ErrNotLoggedIn
	}
	return s.client.User(ctx)
}

func (s *session) requireProject(ctx context.Context) (*api.Project, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	if s.settings.ProjectKey == "" {
		return nil, shared.ErrNotLinked
	}
	return s.client.Project(ctx, s.settings.ProjectKey)
}

func settingsLogLevel() string {
	return config.Resolve(nil).LogLevel
}

func prompter() prompt.Prompter {
	return prompt.NewCLIPrompter(os.Stdin, os.Stdout, nonInteractive)
}

// signalContext is canceled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func projectDir(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}
