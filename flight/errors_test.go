package flight

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/docbridge/errs"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"invalid literal", errs.Pushdown(errs.ErrInvalidLiteral, "n", "n IN (...)", "bad"), codes.InvalidArgument},
		{"identity literal", errs.Pushdown(errs.ErrInvalidIdentityLiteral, "_id", "_id = 'x'", "bad"), codes.InvalidArgument},
		{"wrapped unsupported", fmt.Errorf("%w: bad json", errs.ErrUnsupportedPushdown), codes.InvalidArgument},
		{"config", errs.Config("collection must be set"), codes.FailedPrecondition},
		{"type mismatch", errs.Coercion(errs.ErrTypeMismatch, "n", "Int32", "document", ""), codes.FailedPrecondition},
		{"overflow", fmt.Errorf("row 3: %w", errs.Coercion(errs.ErrNumericOverflowOrFormat, "n", "UInt8", "int32", "300")), codes.FailedPrecondition},
		{"range", errs.Coercion(errs.ErrRange, "d", "Date", "datetime", ""), codes.FailedPrecondition},
		{"canceled", fmt.Errorf("find: %w", context.Canceled), codes.Canceled},
		{"other", errors.New("boom"), codes.Internal},
		{"status", status.Error(codes.NotFound, "missing"), codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := statusFromError(tt.err, "scan %s", "t")
			if got := status.Code(err); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}
	if statusFromError(nil, "x") != nil {
		t.Error("expected nil for nil error")
	}
}
