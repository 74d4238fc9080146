package upload

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nuxthub/shared"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestCheckToken(t *testing.T) {
	now := time.Now()

	exp, err := CheckToken(signed(t, now.Add(time.Hour)), now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), exp, time.Second)

	_, err = CheckToken(signed(t, now.Add(-time.Minute)), now)
	assert.ErrorIs(t, err, shared.ErrTokenExpired)

	exp, err = CheckToken("opaque-token", now)
	require.NoError(t, err)
	assert.True(t, exp.IsZero())
}
