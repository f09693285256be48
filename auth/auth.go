// Package auth authenticates Flight requests by bearer token.
//
// Servers plug in an Authenticator; the Flight interceptors extract the
// token of the authorization header, validate it and store the returned
// identity in the request context for logging.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")
	ErrTokenIsEmpty      = errors.New("authorization token is empty")
	// ErrUnauthenticated replaces the authenticator's own error so that no
	// validation detail reaches the client.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Authenticator maps a bearer token to an identity.
// Implementations MUST be safe for concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// AnonymousIdentity is the identity NoAuth assigns.
const AnonymousIdentity = "anonymous"

type allowAll struct{}

func (allowAll) Authenticate(context.Context, string) (string, error) {
	return AnonymousIdentity, nil
}

// NoAuth accepts every token. For development only.
func NoAuth() Authenticator {
	return allowAll{}
}

type identityKey struct{}

// WithIdentity stores the authenticated identity in ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, or "" for
// requests served without authentication.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}

// TokenFromAuthorizationHeader extracts the token of a "Bearer <token>" header.
func TokenFromAuthorizationHeader(header string) (string, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrInvalidAuthHeader
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// ValidateToken authenticates token and returns ctx carrying the identity.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, ErrTokenIsEmpty
	}
	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, ErrUnauthenticated
	}
	return WithIdentity(ctx, identity), nil
}
