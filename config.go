package docbridge

import (
	"errors"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/docbridge/auth"
	"github.com/hugr-lab/docbridge/catalog"
)

// ServerConfig contains configuration for the Flight server.
type ServerConfig struct {
	// Catalog provides schemas and tables.
	// REQUIRED: MUST NOT be nil.
	Catalog catalog.Catalog

	// Auth provides authentication logic.
	// OPTIONAL: If nil, no authentication (all requests allowed).
	Auth auth.Authenticator

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses a text logger at LogLevel, or slog.Default() if
	// neither is set.
	Logger *slog.Logger

	// LogLevel sets the level of the logger created when Logger is nil.
	LogLevel *slog.Level

	// MaxMessageSize sets the maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string
}

// ErrInvalidConfig indicates ServerConfig validation failed.
var ErrInvalidConfig = errors.New("invalid server config")
