package auth

import (
	"context"
	"errors"
)

// ErrNoIdentity means the request carries no verified caller.
var ErrNoIdentity = errors.New("identity not in context")

// Identity is the verified caller of a request. UserID doubles as the acting
// admin recorded on activity entries.
type Identity struct {
	UserID string
	Role   string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, userID, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, Role: role})
}

// IdentityFrom returns the caller stored by RequireAccessToken. There is no
// fallback identity.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func UserID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if id.Role == "" {
		return "", errors.Join(ErrNoIdentity, errors.New("role missing"))
	}
	return id.Role, nil
}
