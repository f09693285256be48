package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo returns the schema and an unfiltered scan ticket for the
// table named by a [schema_name, table_name] PATH descriptor.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)

	schemaName, tableName, err := tablePath(desc)
	if err != nil {
		return nil, err
	}
	s.requestLogger(ctx).Debug("GetFlightInfo request", "schema", schemaName, "table", tableName)

	table, err := s.lookupTable(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	endpoint, err := s.endpoint(&TicketData{Schema: schemaName, Table: tableName})
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema:           flight.SerializeSchema(table.ArrowSchema(), s.allocator),
		FlightDescriptor: desc,
		Endpoint:         []*flight.FlightEndpoint{endpoint},
		TotalRecords:     -1, // Unknown until scan
		TotalBytes:       -1,
	}, nil
}

func tablePath(desc *flight.FlightDescriptor) (string, string, error) {
	if desc.GetType() != flight.DescriptorPATH {
		return "", "", status.Error(codes.InvalidArgument, "descriptor must be PATH type")
	}
	path := desc.GetPath()
	if len(path) != 2 {
		return "", "", status.Error(codes.InvalidArgument, "path must contain exactly 2 elements: [schema_name, table_name]")
	}
	return path[0], path[1], nil
}

// endpoint builds a FlightEndpoint for td, located at the server address
// when one is configured.
func (s *Server) endpoint(td *TicketData) (*flight.FlightEndpoint, error) {
	ticket, err := EncodeTicket(td)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}
	endpoint := &flight.FlightEndpoint{Ticket: &flight.Ticket{Ticket: ticket}}
	if s.address != "" {
		endpoint.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
	}
	return endpoint, nil
}
