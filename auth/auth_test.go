package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestNoAuth(t *testing.T) {
	for _, token := range []string{"any-token", ""} {
		identity, err := NoAuth().Authenticate(context.Background(), token)
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if identity != "anonymous" {
			t.Errorf("expected identity anonymous, got %q", identity)
		}
	}
}

func TestBearerAuth(t *testing.T) {
	a := BearerAuth(func(token string) (string, error) {
		if token == "valid-token" {
			return "user123", nil
		}
		return "", errors.New("invalid token")
	})

	identity, err := a.Authenticate(context.Background(), "valid-token")
	if err != nil || identity != "user123" {
		t.Errorf("expected user123, got %q, %v", identity, err)
	}
	identity, err = a.Authenticate(context.Background(), "other")
	if err == nil || identity != "" {
		t.Errorf("expected error, got %q, %v", identity, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Authenticate(ctx, "valid-token"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStaticTokens(t *testing.T) {
	a := StaticTokens(map[string]string{
		"secret-1": "alice",
		"secret-2": "bob",
		"":         "nobody",
	})

	tests := []struct {
		token   string
		want    string
		wantErr bool
	}{
		{"secret-1", "alice", false},
		{"secret-2", "bob", false},
		{"secret-3", "", true},
		{"secret", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			identity, err := a.Authenticate(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %t, got %v", tt.wantErr, err)
			}
			if identity != tt.want {
				t.Errorf("expected identity %q, got %q", tt.want, identity)
			}
		})
	}
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"Bearer  abc ", "abc", nil},
		{"Bearer ", "", ErrTokenIsEmpty},
		{"Basic abc", "", ErrInvalidAuthHeader},
		{"", "", ErrInvalidAuthHeader},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := TokenFromAuthorizationHeader(tt.header)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected token %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	a := StaticTokens(map[string]string{"t": "alice"})

	ctx, err := ValidateToken(context.Background(), "t", a)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if got := IdentityFromContext(ctx); got != "alice" {
		t.Errorf("expected identity alice, got %q", got)
	}

	if _, err := ValidateToken(context.Background(), "x", a); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := ValidateToken(context.Background(), "", a); !errors.Is(err, ErrTokenIsEmpty) {
		t.Errorf("expected ErrTokenIsEmpty, got %v", err)
	}
	if got := IdentityFromContext(context.Background()); got != "" {
		t.Errorf("expected empty identity, got %q", got)
	}
}

func TestStaticTokensConcurrency(t *testing.T) {
	a := StaticTokens(map[string]string{"t": "alice"})
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := a.Authenticate(context.Background(), "t"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent authenticate failed: %v", err)
	}
}
