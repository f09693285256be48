package flight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/internal/msgpack"
)

// Airport action names.
const (
	ActionListSchemas       = "list_schemas"
	ActionListTables        = "list_tables"
	ActionEndpoints         = "endpoints"
	ActionCreateTransaction = "create_transaction"
)

// DoAction dispatches the Airport catalog actions.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	s.requestLogger(ctx).Debug("DoAction called",
		"type", action.GetType(),
		"body_size", len(action.GetBody()),
	)

	switch action.GetType() {
	case ActionListSchemas:
		return s.handleListSchemas(ctx, action, stream)
	case ActionListTables:
		return s.handleListTables(ctx, action, stream)
	case ActionEndpoints:
		return s.handleEndpoints(ctx, action, stream)
	case ActionCreateTransaction:
		return s.handleCreateTransaction(ctx, action, stream)
	}
	return status.Errorf(codes.Unimplemented, "unknown action type: %s", action.GetType())
}

func sendBody(stream flight.FlightService_DoActionServer, v any) error {
	body, err := msgpack.Encode(v)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}

// serializedContents is AirportSerializedContentsWithSHA256Hash.
type serializedContents struct {
	SHA256     string  `msgpack:"sha256"`
	URL        *string `msgpack:"url"`
	Serialized *string `msgpack:"serialized"`
}

type serializedSchema struct {
	Name        string             `msgpack:"name"`
	Description string             `msgpack:"description"`
	Tags        map[string]string  `msgpack:"tags"`
	Contents    serializedContents `msgpack:"contents"`
	IsDefault   bool               `msgpack:"is_default"`
}

type catalogVersion struct {
	Version uint64 `msgpack:"catalog_version"`
	IsFixed bool   `msgpack:"is_fixed"`
}

type catalogRoot struct {
	Contents    serializedContents `msgpack:"contents"`
	Schemas     []serializedSchema `msgpack:"schemas"`
	VersionInfo catalogVersion     `msgpack:"version_info"`
}

// flightAppMetadata is AirportSerializedFlightAppMetadata.
type flightAppMetadata struct {
	Type        string  `msgpack:"type"`
	Schema      string  `msgpack:"schema"`
	Catalog     string  `msgpack:"catalog"`
	Name        string  `msgpack:"name"`
	Comment     string  `msgpack:"comment"`
	InputSchema *string `msgpack:"input_schema"`
	ActionName  *string `msgpack:"action_name"`
	Description *string `msgpack:"description"`
	ExtraData   *string `msgpack:"extra_data"`
}

// handleListSchemas returns the compressed catalog root with the serialized
// FlightInfo of every table inlined per schema. The first schema is the
// default one.
func (s *Server) handleListSchemas(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	logger := s.requestLogger(ctx)

	schemas, err := s.catalog.Schemas(ctx)
	if err != nil {
		logger.Error("Failed to get schemas", "error", err)
		return status.Errorf(codes.Internal, "failed to get schemas: %v", err)
	}

	root := catalogRoot{
		Contents:    serializedContents{SHA256: "0000000000000000000000000000000000000000000000000000000000000000"},
		Schemas:     make([]serializedSchema, 0, len(schemas)),
		VersionInfo: catalogVersion{Version: 1, IsFixed: true},
	}
	for i, schema := range schemas {
		contents, err := s.serializeSchemaContents(ctx, schema)
		if err != nil {
			logger.Error("Failed to serialize schema contents", "schema", schema.Name(), "error", err)
			return status.Errorf(codes.Internal, "failed to serialize schema contents: %v", err)
		}
		root.Schemas = append(root.Schemas, serializedSchema{
			Name:        schema.Name(),
			Description: schema.Comment(),
			Tags:        map[string]string{},
			Contents:    contents,
			IsDefault:   i == 0,
		})
	}

	uncompressed, err := msgpack.Encode(root)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode catalog root: %v", err)
	}
	body, err := s.compressor.CompressedContent(uncompressed)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to compress catalog root: %v", err)
	}
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}

	logger.Debug("list_schemas completed", "schemas", len(schemas), "uncompressed_bytes", len(uncompressed))
	return nil
}

// serializeSchemaContents compresses the msgpack array of serialized
// FlightInfo messages of the schema tables.
func (s *Server) serializeSchemaContents(ctx context.Context, schema catalog.Schema) (serializedContents, error) {
	tables, err := schema.Tables(ctx)
	if err != nil {
		return serializedContents{}, fmt.Errorf("failed to get tables: %w", err)
	}

	infos := make([][]byte, 0, len(tables))
	for _, table := range tables {
		info, err := s.tableFlightInfo(schema.Name(), table)
		if err != nil {
			return serializedContents{}, err
		}
		b, err := proto.Marshal(info)
		if err != nil {
			return serializedContents{}, fmt.Errorf("failed to marshal FlightInfo: %w", err)
		}
		infos = append(infos, b)
	}

	uncompressed, err := msgpack.Encode(infos)
	if err != nil {
		return serializedContents{}, err
	}
	serialized, err := s.compressor.CompressedContent(uncompressed)
	if err != nil {
		return serializedContents{}, err
	}
	hash := sha256.Sum256(serialized)
	data := string(serialized)
	return serializedContents{SHA256: hex.EncodeToString(hash[:]), Serialized: &data}, nil
}

func (s *Server) tableFlightInfo(schemaName string, table catalog.Table) (*flight.FlightInfo, error) {
	arrowSchema := table.ArrowSchema()
	if arrowSchema == nil {
		return nil, fmt.Errorf("table %s.%s has nil Arrow schema", schemaName, table.Name())
	}
	appMetadata, err := msgpack.Encode(flightAppMetadata{
		Type:    "table",
		Schema:  schemaName,
		Name:    table.Name(),
		Comment: table.Comment(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode app metadata: %w", err)
	}
	endpoint, err := s.endpoint(&TicketData{Schema: schemaName, Table: table.Name()})
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(arrowSchema, s.allocator),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{schemaName, table.Name()},
		},
		Endpoint:     []*flight.FlightEndpoint{endpoint},
		TotalRecords: -1,
		TotalBytes:   -1,
		AppMetadata:  appMetadata,
	}, nil
}

// handleListTables returns the table names of one schema, or of every
// schema when none is given.
func (s *Server) handleListTables(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var params struct {
		SchemaName string `msgpack:"schema_name"`
	}
	if len(action.GetBody()) > 0 {
		if err := msgpack.Decode(action.GetBody(), &params); err != nil {
			return status.Errorf(codes.InvalidArgument, "invalid parameters: %v", err)
		}
	}

	var schemas []catalog.Schema
	if params.SchemaName != "" {
		schema, err := s.catalog.Schema(ctx, params.SchemaName)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to get schema: %v", err)
		}
		if schema == nil {
			return status.Errorf(codes.NotFound, "schema not found: %s", params.SchemaName)
		}
		schemas = []catalog.Schema{schema}
	} else {
		var err error
		if schemas, err = s.catalog.Schemas(ctx); err != nil {
			return status.Errorf(codes.Internal, "failed to get schemas: %v", err)
		}
	}

	tablesBySchema := make(map[string][]string, len(schemas))
	for _, schema := range schemas {
		tables, err := schema.Tables(ctx)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to get tables for schema %s: %v", schema.Name(), err)
		}
		names := make([]string, 0, len(tables))
		for _, table := range tables {
			names = append(names, table.Name())
		}
		tablesBySchema[schema.Name()] = names
	}

	if params.SchemaName != "" {
		return sendBody(stream, map[string]any{
			"schema": params.SchemaName,
			"tables": tablesBySchema[params.SchemaName],
		})
	}
	return sendBody(stream, map[string]any{"tables": tablesBySchema})
}

// endpointsRequest is AirportGetFlightEndpointsRequest.
type endpointsRequest struct {
	Descriptor string `msgpack:"descriptor"`
	Parameters struct {
		JSONFilters string   `msgpack:"json_filters"`
		ColumnIDs   []uint64 `msgpack:"column_ids"`
	} `msgpack:"parameters"`
}

// handleEndpoints returns the scan endpoint of a table. The ticket carries
// the filter JSON and the projected column names so DoGet can push them
// down.
func (s *Server) handleEndpoints(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var request endpointsRequest
	if err := msgpack.Decode(action.GetBody(), &request); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	desc := &flight.FlightDescriptor{}
	if err := proto.Unmarshal([]byte(request.Descriptor), desc); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid descriptor: %v", err)
	}
	schemaName, tableName, err := tablePath(desc)
	if err != nil {
		return err
	}
	table, err := s.lookupTable(ctx, schemaName, tableName)
	if err != nil {
		return err
	}

	td := &TicketData{
		Schema:  schemaName,
		Table:   tableName,
		Columns: columnNames(table, request.Parameters.ColumnIDs),
	}
	if f := request.Parameters.JSONFilters; f != "" {
		if !json.Valid([]byte(f)) {
			return status.Error(codes.InvalidArgument, "json_filters is not valid JSON")
		}
		td.Filters = json.RawMessage(f)
	}

	endpoint, err := s.endpoint(td)
	if err != nil {
		return err
	}
	b, err := proto.Marshal(endpoint)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to marshal endpoint: %v", err)
	}

	s.requestLogger(ctx).Debug("endpoints completed",
		"schema", schemaName,
		"table", tableName,
		"columns", td.Columns,
		"has_filters", len(td.Filters) > 0,
	)
	return sendBody(stream, []string{string(b)})
}

// columnNames maps column ids to names. Ids outside the table schema, such
// as the row id, are skipped.
func columnNames(table catalog.Table, ids []uint64) []string {
	if len(ids) == 0 {
		return nil
	}
	schema := table.ArrowSchema()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if id < uint64(schema.NumFields()) {
			names = append(names, schema.Field(int(id)).Name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// handleCreateTransaction reports that tables are read-only: the
// identifier is always nil.
func (s *Server) handleCreateTransaction(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	return sendBody(stream, struct {
		Identifier *string `msgpack:"identifier"`
	}{})
}
