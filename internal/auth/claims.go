package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errUserIDMissing   = errors.New("user_id missing")
	errRoleMissing     = errors.New("role missing")
	errSubjectMismatch = errors.New("sub does not match user_id")
)

// Claims is the access token payload issued by the identity provider.
// UserID becomes the acting admin on every activity entry; Role decides read
// vs write access (see internal/rbac).
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Validate is run by jwt.Validator after the registered-claim checks.
func (c Claims) Validate() error {
	if c.UserID == "" {
		return errUserIDMissing
	}
	if c.Role == "" {
		return errRoleMissing
	}
	if c.Subject != "" && c.Subject != c.UserID {
		return errSubjectMismatch
	}
	return nil
}
