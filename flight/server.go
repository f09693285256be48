// Package flight serves catalog tables over Arrow Flight using the Airport
// action protocol understood by DuckDB.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/internal/serialize"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer so unimplemented RPCs return Unimplemented.
type Server struct {
	flight.BaseFlightServer

	catalog    catalog.Catalog
	allocator  memory.Allocator
	logger     *slog.Logger
	address    string // public address for FlightEndpoint locations
	compressor *serialize.Compressor
}

// NewServer creates a Flight server over cat.
// The address is advertised in endpoint locations when set.
func NewServer(cat catalog.Catalog, allocator memory.Allocator, logger *slog.Logger, address string) (*Server, error) {
	compressor, err := serialize.NewCompressor()
	if err != nil {
		return nil, err
	}
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalog:    cat,
		allocator:  allocator,
		logger:     logger,
		address:    address,
		compressor: compressor,
	}, nil
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.compressor.Close()
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
