package docbridge

import (
	"context"

	"github.com/hugr-lab/docbridge/auth"
)

// Authenticator validates bearer tokens and returns user identity.
type Authenticator = auth.Authenticator

// BearerAuth creates an Authenticator from a validation function.
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return auth.BearerAuth(validateFunc)
}

// StaticTokens creates an Authenticator accepting the tokens of a token to
// identity map.
func StaticTokens(tokens map[string]string) Authenticator {
	return auth.StaticTokens(tokens)
}

// NoAuth returns an Authenticator that allows all requests without validation.
// Useful for development and testing. DO NOT use in production.
func NoAuth() Authenticator {
	return auth.NoAuth()
}

// IdentityFromContext retrieves the authenticated user identity from context.
func IdentityFromContext(ctx context.Context) string {
	return auth.IdentityFromContext(ctx)
}
