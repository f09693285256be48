package flight

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/docbridge/catalog"
)

// lookupTable resolves schemaName.tableName, returning gRPC status errors.
func (s *Server) lookupTable(ctx context.Context, schemaName, tableName string) (catalog.Table, error) {
	schema, err := s.catalog.Schema(ctx, schemaName)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get schema: %v", err)
	}
	if schema == nil {
		return nil, status.Errorf(codes.NotFound, "schema not found: %s", schemaName)
	}
	table, err := schema.Table(ctx, tableName)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to get table: %v", err)
	}
	if table == nil {
		return nil, status.Errorf(codes.NotFound, "table not found: %s.%s", schemaName, tableName)
	}
	if table.ArrowSchema() == nil {
		return nil, status.Errorf(codes.Internal, "table %s.%s has nil Arrow schema", schemaName, tableName)
	}
	return table, nil
}
