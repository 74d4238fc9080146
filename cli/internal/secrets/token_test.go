package secrets

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"nuxthub/shared/config"
)

func TestTokenStoreUsesKeyring(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), config.UserConfigFile)
	require.NoError(t, config.Save(&config.UserConfig{Hub: config.HubConfig{UserToken: "legacy"}}, path))

	s := NewTokenStore(path)
	src, err := s.Save("tok")
	require.NoError(t, err)
	assert.Equal(t, SourceKeyring, src)

	token, src, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, SourceKeyring, src)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Hub.UserToken)

	require.NoError(t, s.Clear())
	token, src, err = s.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, SourceNone, src)
}

func TestTokenStoreFallsBackToConfig(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	path := filepath.Join(t.TempDir(), config.UserConfigFile)

	s := NewTokenStore(path)
	src, err := s.Save("tok")
	require.NoError(t, err)
	assert.Equal(t, SourceConfig, src)

	token, src, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, SourceConfig, src)

	require.NoError(t, s.Clear())
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Hub.UserToken)
}
