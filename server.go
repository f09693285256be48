package docbridge

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/docbridge/flight"
)

// NewServer registers the Flight service handlers on grpcServer. It does
// not start serving; the caller owns the server lifecycle.
//
// For authentication and message size limits, create grpcServer with
// ServerOptions:
//
//	grpcServer := grpc.NewServer(docbridge.ServerOptions(config)...)
//	if err := docbridge.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if config.Catalog == nil {
		return fmt.Errorf("%w: catalog is required", ErrInvalidConfig)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	logger := Logger(config)

	flightServer, err := flight.NewServer(config.Catalog, allocator, logger, config.Address)
	if err != nil {
		return fmt.Errorf("create flight server: %w", err)
	}
	flight.RegisterFlightServer(grpcServer, flightServer)

	logger.Info("Flight server registered",
		"has_auth", config.Auth != nil,
		"max_message_size", config.MaxMessageSize,
		"address", config.Address,
	)
	return nil
}

// Logger returns config.Logger, or a text logger at config.LogLevel.
func Logger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with authentication interceptors
// and message size limits.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	var opts []grpc.ServerOption
	if config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(flight.UnaryServerInterceptor(config.Auth)),
			grpc.StreamInterceptor(flight.StreamServerInterceptor(config.Auth)),
		)
	}
	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}
	return opts
}
