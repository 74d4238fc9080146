package upload

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nuxthub/shared"
)

// CheckToken reads the expiry of the upload JWT without verifying its
// signature; only the edge can verify it. Opaque tokens pass unchecked.
func CheckToken(token string, now time.Time) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		logger.Debug("Upload token is not a JWT, skipping expiry check: %v", err)
		return time.Time{}, nil
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	exp := claims.ExpiresAt.Time
	if !exp.After(now) {
		return exp, fmt.Errorf("%w (expired %s)", shared.ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return exp, nil
}
