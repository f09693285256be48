package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/docbridge/internal/serialize"
)

// ListFlightsCommand is the descriptor command of the ListFlights result.
const ListFlightsCommand = "ListFlights"

// ListFlights sends a single FlightInfo whose ticket holds the
// zstd-compressed table listing (serialize.TablesSchema as Arrow IPC).
// Criteria are ignored.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := s.requestLogger(ctx)

	data, err := serialize.SerializeCatalog(ctx, s.catalog, s.allocator)
	if err != nil {
		logger.Error("Failed to serialize catalog", "error", err)
		return status.Errorf(codes.Internal, "failed to serialize catalog: %v", err)
	}
	compressed := s.compressor.Compress(data)

	info := &flight.FlightInfo{
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorCMD,
			Cmd:  []byte(ListFlightsCommand),
		},
		Endpoint: []*flight.FlightEndpoint{
			{Ticket: &flight.Ticket{Ticket: compressed}},
		},
		TotalRecords: -1,
		TotalBytes:   int64(len(compressed)),
	}
	if err := stream.Send(info); err != nil {
		logger.Error("Failed to send FlightInfo", "error", err)
		return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
	}

	logger.Debug("ListFlights completed",
		"uncompressed_bytes", len(data),
		"compressed_bytes", len(compressed),
	)
	return nil
}
