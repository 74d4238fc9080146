package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"nuxthub/shared"
	"nuxthub/shared/config"
)

var logger = shared.PackageLogger("secrets", "🔐 SECRETS")

const (
	keyringService = "nuxthub"
	keyringUser    = "user-token"
)

// Source tells where a stored token was found.
type Source string

const (
	SourceNone    Source = ""
	SourceKeyring Source = "keyring"
	SourceConfig  Source = "config"
)

// TokenStore keeps the user token in the OS keychain and falls back to the
// user config file on systems without one (CI, headless Linux).
type TokenStore struct {
	configPath string
}

func NewTokenStore(configPath string) *TokenStore {
	return &TokenStore{configPath: configPath}
}

// Token returns the stored token. An empty token with SourceNone means logged out.
func (s *TokenStore) Token() (string, Source, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	switch {
	case err == nil && token != "":
		return token, SourceKeyring, nil
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		logger.Debug("Keyring unavailable: %v", err)
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return "", SourceNone, err
	}
	if cfg.Hub.UserToken != "" {
		return cfg.Hub.UserToken, SourceConfig, nil
	}
	return "", SourceNone, nil
}

// Save stores token, preferring the keychain. A token left in the config file
// by an older login is removed once the keychain holds the new one.
func (s *TokenStore) Save(token string) (Source, error) {
	err := keyring.Set(keyringService, keyringUser, token)
	if err == nil {
		return SourceKeyring, s.writeConfigToken("")
	}
	logger.Debug("Keyring unavailable, storing token in %s: %v", s.configPath, err)
	if err := s.writeConfigToken(token); err != nil {
		return SourceNone, err
	}
	return SourceConfig, nil
}

// Clear removes the token from both locations.
func (s *TokenStore) Clear() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.Debug("Could not delete keyring entry: %v", err)
	}
	return s.writeConfigToken("")
}

func (s *TokenStore) writeConfigToken(token string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}
	if cfg.Hub.UserToken == token {
		return nil
	}
	cfg.Hub.UserToken = token
	if err := config.Save(cfg, s.configPath); err != nil {
		return fmt.Errorf("save user config: %w", err)
	}
	return nil
}
