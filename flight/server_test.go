package flight

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/internal/msgpack"
	"github.com/hugr-lab/docbridge/internal/serialize"
)

var usersSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// usersScan serves three rows and honors the column projection.
func usersScan(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
	schema := ProjectSchema(usersSchema, opts.Columns)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	for i, f := range schema.Fields() {
		switch f.Name {
		case "id":
			b.Field(i).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
		case "name":
			b.Field(i).(*array.StringBuilder).AppendValues([]string{"a", "b", "c"}, nil)
		}
	}
	rec := b.NewRecordBatch()
	defer rec.Release()
	return array.NewRecordReader(schema, []arrow.RecordBatch{rec})
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cat := catalog.NewStaticCatalog()
	cat.AddSchema("main", "Main schema", map[string]catalog.Table{
		"users": catalog.NewStaticTable("users", "User accounts", usersSchema, usersScan),
		"broken": catalog.NewStaticTable("broken", "", usersSchema, func(ctx context.Context, opts *catalog.ScanOptions) (array.RecordReader, error) {
			return array.NewRecordReader(arrow.NewSchema(usersSchema.Fields()[:1], nil), nil)
		}),
	})
	s, err := NewServer(cat, memory.DefaultAllocator, slog.New(slog.NewTextHandler(io.Discard, nil)), "localhost:50051")
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

type actionStream struct {
	fakeStream
	results []*flight.Result
}

func (a *actionStream) Send(r *flight.Result) error {
	a.results = append(a.results, r)
	return nil
}

type getStream struct {
	fakeStream
	data []*flight.FlightData
}

func (g *getStream) Send(d *flight.FlightData) error {
	g.data = append(g.data, d)
	return nil
}

func (g *getStream) Recv() (*flight.FlightData, error) {
	if len(g.data) == 0 {
		return nil, io.EOF
	}
	d := g.data[0]
	g.data = g.data[1:]
	return d, nil
}

func doAction(t *testing.T, s *Server, typ string, body any) ([]*flight.Result, error) {
	t.Helper()
	var b []byte
	if body != nil {
		var err error
		if b, err = msgpack.Encode(body); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	stream := &actionStream{fakeStream: fakeStream{ctx: context.Background()}}
	err := s.DoAction(&flight.Action{Type: typ, Body: b}, stream)
	return stream.results, err
}

func doGet(t *testing.T, s *Server, td *TicketData) (*arrow.Schema, []int64, error) {
	t.Helper()
	ticket, err := EncodeTicket(td)
	if err != nil {
		t.Fatalf("EncodeTicket failed: %v", err)
	}
	stream := &getStream{fakeStream: fakeStream{ctx: context.Background()}}
	if err := s.DoGet(&flight.Ticket{Ticket: ticket}, stream); err != nil {
		return nil, nil, err
	}
	reader, err := flight.NewRecordReader(stream)
	if err != nil {
		t.Fatalf("NewRecordReader failed: %v", err)
	}
	defer reader.Release()
	var ids []int64
	for reader.Next() {
		rec := reader.RecordBatch()
		idx := rec.Schema().FieldIndices("id")
		if len(idx) == 0 {
			continue
		}
		ids = append(ids, rec.Column(idx[0]).(*array.Int64).Int64Values()...)
	}
	return reader.Schema(), ids, reader.Err()
}

func TestDoGet(t *testing.T) {
	s := testServer(t)

	schema, ids, err := doGet(t, s, &TicketData{Schema: "main", Table: "users"})
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	if !schema.Equal(usersSchema) {
		t.Errorf("expected full schema, got %v", schema)
	}
	if len(ids) != 3 || ids[2] != 3 {
		t.Errorf("expected ids [1 2 3], got %v", ids)
	}

	schema, _, err = doGet(t, s, &TicketData{Schema: "main", Table: "users", Columns: []string{"name", "id"}})
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	if schema.NumFields() != 2 || schema.Field(0).Name != "name" {
		t.Errorf("expected projected schema [name id], got %v", schema)
	}
}

func TestDoGetErrors(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name string
		td   *TicketData
		want codes.Code
	}{
		{"unknown schema", &TicketData{Schema: "other", Table: "users"}, codes.NotFound},
		{"unknown table", &TicketData{Schema: "main", Table: "missing"}, codes.NotFound},
		{"schema mismatch", &TicketData{Schema: "main", Table: "broken"}, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := doGet(t, s, tt.td)
			if got := status.Code(err); got != tt.want {
				t.Errorf("expected %v, got %v (%v)", tt.want, got, err)
			}
		})
	}

	stream := &getStream{fakeStream: fakeStream{ctx: context.Background()}}
	err := s.DoGet(&flight.Ticket{Ticket: []byte("nope")}, stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestEndpointsAction(t *testing.T) {
	s := testServer(t)
	desc, err := proto.Marshal(&flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"main", "users"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var req endpointsRequest
	req.Descriptor = string(desc)
	req.Parameters.JSONFilters = `{"filters":[]}`
	req.Parameters.ColumnIDs = []uint64{1, 18446744073709551615}

	results, err := doAction(t, s, ActionEndpoints, req)
	if err != nil {
		t.Fatalf("endpoints failed: %v", err)
	}
	var endpoints []string
	if err := msgpack.Decode(results[0].Body, &endpoints); err != nil || len(endpoints) != 1 {
		t.Fatalf("expected one endpoint, got %v, %v", endpoints, err)
	}
	var ep flight.FlightEndpoint
	if err := proto.Unmarshal([]byte(endpoints[0]), &ep); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(ep.Location) != 1 || ep.Location[0].Uri != "grpc://localhost:50051" {
		t.Errorf("unexpected location %v", ep.Location)
	}
	td, err := DecodeTicket(ep.Ticket.Ticket)
	if err != nil {
		t.Fatalf("DecodeTicket failed: %v", err)
	}
	if len(td.Columns) != 1 || td.Columns[0] != "name" {
		t.Errorf("expected columns [name], got %v", td.Columns)
	}
	if string(td.Filters) != `{"filters":[]}` {
		t.Errorf("expected filters to be kept, got %s", td.Filters)
	}

	req.Parameters.JSONFilters = "{"
	if _, err := doAction(t, s, ActionEndpoints, req); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for bad filters, got %v", err)
	}
}

func TestListSchemasAction(t *testing.T) {
	s := testServer(t)
	results, err := doAction(t, s, ActionListSchemas, nil)
	if err != nil {
		t.Fatalf("list_schemas failed: %v", err)
	}

	d, err := serialize.NewDecompressor()
	if err != nil {
		t.Fatalf("NewDecompressor failed: %v", err)
	}
	defer d.Close()
	data, err := d.DecodeCompressedContent(results[0].Body)
	if err != nil {
		t.Fatalf("DecodeCompressedContent failed: %v", err)
	}
	var root catalogRoot
	if err := msgpack.Decode(data, &root); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(root.Schemas) != 1 || root.Schemas[0].Name != "main" || !root.Schemas[0].IsDefault {
		t.Fatalf("unexpected schemas %+v", root.Schemas)
	}

	contents := root.Schemas[0].Contents
	if contents.Serialized == nil {
		t.Fatal("expected inline schema contents")
	}
	raw, err := d.DecodeCompressedContent([]byte(*contents.Serialized))
	if err != nil {
		t.Fatalf("DecodeCompressedContent failed: %v", err)
	}
	var infos [][]byte
	if err := msgpack.Decode(raw, &infos); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(infos))
	}
	var info flight.FlightInfo
	if err := proto.Unmarshal(infos[1], &info); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if path := info.FlightDescriptor.Path; len(path) != 2 || path[1] != "users" {
		t.Errorf("expected users descriptor, got %v", path)
	}
	var meta flightAppMetadata
	if err := msgpack.Decode(info.AppMetadata, &meta); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if meta.Type != "table" || meta.Comment != "User accounts" {
		t.Errorf("unexpected app metadata %+v", meta)
	}
}

func TestListTablesAction(t *testing.T) {
	s := testServer(t)

	results, err := doAction(t, s, ActionListTables, map[string]string{"schema_name": "main"})
	if err != nil {
		t.Fatalf("list_tables failed: %v", err)
	}
	var one struct {
		Schema string   `msgpack:"schema"`
		Tables []string `msgpack:"tables"`
	}
	if err := msgpack.Decode(results[0].Body, &one); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if one.Schema != "main" || len(one.Tables) != 2 || one.Tables[0] != "broken" {
		t.Errorf("unexpected tables %+v", one)
	}

	results, err = doAction(t, s, ActionListTables, nil)
	if err != nil {
		t.Fatalf("list_tables failed: %v", err)
	}
	var all struct {
		Tables map[string][]string `msgpack:"tables"`
	}
	if err := msgpack.Decode(results[0].Body, &all); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(all.Tables["main"]) != 2 {
		t.Errorf("unexpected tables %+v", all.Tables)
	}

	if _, err := doAction(t, s, ActionListTables, map[string]string{"schema_name": "nope"}); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCreateTransactionAction(t *testing.T) {
	s := testServer(t)
	results, err := doAction(t, s, ActionCreateTransaction, map[string]string{"catalog_name": "x"})
	if err != nil {
		t.Fatalf("create_transaction failed: %v", err)
	}
	var resp map[string]any
	if err := msgpack.Decode(results[0].Body, &resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v, ok := resp["identifier"]; !ok || v != nil {
		t.Errorf("expected nil identifier, got %v", resp)
	}
}

func TestUnknownAction(t *testing.T) {
	s := testServer(t)
	if _, err := doAction(t, s, "CreateTable", nil); status.Code(err) != codes.Unimplemented {
		t.Errorf("expected Unimplemented, got %v", err)
	}
}

func TestGetFlightInfo(t *testing.T) {
	s := testServer(t)
	info, err := s.GetFlightInfo(context.Background(), &flight.FlightDescriptor{Type: flight.DescriptorPATH, Path: []string{"main", "users"}})
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}
	schema, err := flight.DeserializeSchema(info.Schema, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("DeserializeSchema failed: %v", err)
	}
	if !schema.Equal(usersSchema) {
		t.Errorf("expected users schema, got %v", schema)
	}

	_, err = s.GetFlightInfo(context.Background(), &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: []byte("x")})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}
