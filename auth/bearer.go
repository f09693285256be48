package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return b.validateFunc(token)
}

// StaticTokens authenticates against a fixed token to identity map, as
// loaded from the auth.tokens setting. Tokens are compared in constant time.
func StaticTokens(tokens map[string]string) Authenticator {
	type entry struct {
		token    []byte
		identity string
	}
	entries := make([]entry, 0, len(tokens))
	for token, identity := range tokens {
		if token == "" {
			continue
		}
		entries = append(entries, entry{token: []byte(token), identity: identity})
	}
	return BearerAuth(func(token string) (string, error) {
		found, identity := 0, ""
		for _, e := range entries {
			if subtle.ConstantTimeCompare(e.token, []byte(token)) == 1 {
				found, identity = 1, e.identity
			}
		}
		if found == 0 {
			return "", errInvalidToken
		}
		return identity, nil
	})
}

var errInvalidToken = errors.New("invalid token")
