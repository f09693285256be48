package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := Coercion(ErrTypeMismatch, "data", "UUID", "string", "")
	wrapped := fmt.Errorf("scan failed: %w", err)

	if !errors.Is(wrapped, ErrTypeMismatch) {
		t.Errorf("expected wrapped error to match ErrTypeMismatch")
	}
	if errors.Is(wrapped, ErrRange) {
		t.Errorf("expected wrapped error not to match ErrRange")
	}
	if KindOf(wrapped) != ErrTypeMismatch {
		t.Errorf("expected kind ErrTypeMismatch, got %v", KindOf(wrapped))
	}
	if KindOf(errors.New("other")) != nil {
		t.Errorf("expected nil kind for foreign error")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "coercion",
			err:  Coercion(ErrNumericOverflowOrFormat, "key", "Int16", "string \"32767.0\"", "fractional literal"),
			want: []string{`column "key"`, "declared Int16", `got string "32767.0"`, "fractional literal"},
		},
		{
			name: "pushdown",
			err:  Pushdown(ErrInvalidIdentityLiteral, "_id", "_id = 'x'", ""),
			want: []string{"invalid identity literal", `column "_id"`, "in clause _id = 'x'"},
		},
		{
			name: "config",
			err:  Config("uri database %q conflicts with database %q", "a", "b"),
			want: []string{"config error", `"a"`, `"b"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("expected %q in '%s'", w, msg)
				}
			}
		})
	}
}
