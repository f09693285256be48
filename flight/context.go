package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/metadata"
)

type contextKey int

const (
	metaKey contextKey = iota
)

// Metadata header keys.
const (
	// HeaderAuthorization is the gRPC metadata header for authorization token.
	HeaderAuthorization = "authorization"
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "airport-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "airport-client-session-id"
	// HeaderTransactionID carries the identifier returned by create_transaction.
	HeaderTransactionID = "x-transaction-id"
)

// ContextMeta holds the request headers the server uses.
type ContextMeta struct {
	Authorization string
	TraceID       string
	SessionID     string
	TransactionID string
}

// WithContextMeta stores meta in ctx.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, metaKey, &meta)
}

// MetaFromContext returns the stored metadata, or nil.
func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, _ := ctx.Value(metaKey).(*ContextMeta)
	return meta
}

// AuthorizationFromContext retrieves the authorization header from context.
func AuthorizationFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.Authorization
	}
	return ""
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.TraceID
	}
	return ""
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	if meta := MetaFromContext(ctx); meta != nil {
		return meta.SessionID
	}
	return ""
}

// EnrichContextMetadata copies the known headers of the incoming gRPC
// metadata into ctx. An enriched context is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}
	return WithContextMeta(ctx, ContextMeta{
		Authorization: first(HeaderAuthorization),
		TraceID:       first(HeaderTraceID),
		SessionID:     first(HeaderSessionID),
		TransactionID: first(HeaderTransactionID),
	})
}

// requestLogger adds the trace and session identifiers of ctx to logger.
func (s *Server) requestLogger(ctx context.Context) *slog.Logger {
	l := s.logger
	if id := TraceIDFromContext(ctx); id != "" {
		l = l.With("trace_id", id)
	}
	if id := SessionIDFromContext(ctx); id != "" {
		l = l.With("session_id", id)
	}
	if meta := MetaFromContext(ctx); meta != nil && meta.TransactionID != "" {
		l = l.With("transaction_id", meta.TransactionID)
	}
	return l
}
