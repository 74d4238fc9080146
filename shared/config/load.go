package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHubURL     = "https://admin.hub.nuxt.com"
	DefaultProjectURL = "http://localhost:3000"
	UserConfigFile    = ".nuxtrc.yml"
	EnvPrefix         = "NUXT_HUB"
)

// UserConfig is the per-user file kept in the home directory.
type UserConfig struct {
	Hub HubConfig `yaml:"hub"`
}

type HubConfig struct {
	URL       string `yaml:"url,omitempty"`
	UserToken string `yaml:"userToken,omitempty"`
}

// Settings is the effective configuration after env, user file and defaults are merged.
type Settings struct {
	HubURL           string
	UserToken        string
	ProjectKey       string
	ProjectURL       string
	ProjectSecretKey string
	LogLevel         string
}

// UserConfigPath returns the user config location. NUXT_HUB_CONFIG_DIR overrides the home directory.
func UserConfigPath() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, UserConfigFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, UserConfigFile), nil
}

// Load reads the user config. A missing file yields an empty config.
func Load(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user config: %w", err)
	}

	var cfg UserConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid user config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the user config with owner-only permissions since it may hold a token.
func Save(cfg *UserConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode user config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Resolve merges environment variables over the user config and defaults.
func Resolve(user *UserConfig) *Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", DefaultHubURL)
	v.SetDefault("log_level", "info")
	if user != nil {
		if user.Hub.URL != "" {
			v.SetDefault("url", user.Hub.URL)
		}
		if user.Hub.UserToken != "" {
			v.SetDefault("user_token", user.Hub.UserToken)
		}
	}

	return &Settings{
		HubURL:           strings.TrimRight(v.GetString("url"), "/"),
		UserToken:        v.GetString("user_token"),
		ProjectKey:       v.GetString("project_key"),
		ProjectURL:       v.GetString("project_url"),
		ProjectSecretKey: v.GetString("project_secret_key"),
		LogLevel:         v.GetString("log_level"),
	}
}
