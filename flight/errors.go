package flight

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/docbridge/errs"
)

// statusFromError maps a table error to a gRPC status. Errors that already
// carry a status are returned unchanged.
func statusFromError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	msg := fmt.Sprintf(format, args...)
	return status.Errorf(codeOf(err), "%s: %v", msg, err)
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	for _, kind := range []error{errs.ErrInvalidLiteral, errs.ErrInvalidIdentityLiteral, errs.ErrUnsupportedPushdown} {
		if errors.Is(err, kind) {
			return codes.InvalidArgument
		}
	}
	for _, kind := range []error{errs.ErrConfig, errs.ErrTypeMismatch, errs.ErrNumericOverflowOrFormat, errs.ErrRange} {
		if errors.Is(err, kind) {
			return codes.FailedPrecondition
		}
	}
	return codes.Internal
}
