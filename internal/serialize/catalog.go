// Package serialize encodes catalog metadata for ListFlights and the
// Airport catalog actions.
package serialize

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/docbridge/catalog"
)

// TablesSchema is the Flight SQL GetTables layout used by SerializeCatalog,
// extended with the table comment.
var TablesSchema = arrow.NewSchema([]arrow.Field{
	{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "table_name", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "table_type", Type: arrow.BinaryTypes.String, Nullable: false},
	{Name: "comment", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

// SerializeCatalog writes one row per table of cat as an Arrow IPC stream.
func SerializeCatalog(ctx context.Context, cat catalog.Catalog, allocator memory.Allocator) ([]byte, error) {
	schemas, err := cat.Schemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get schemas: %w", err)
	}

	builder := array.NewRecordBuilder(allocator, TablesSchema)
	defer builder.Release()

	catalogName := builder.Field(0).(*array.StringBuilder)
	schemaName := builder.Field(1).(*array.StringBuilder)
	tableName := builder.Field(2).(*array.StringBuilder)
	tableType := builder.Field(3).(*array.StringBuilder)
	comment := builder.Field(4).(*array.StringBuilder)

	for _, schema := range schemas {
		tables, err := schema.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get tables for schema %s: %w", schema.Name(), err)
		}
		for _, table := range tables {
			catalogName.AppendNull()
			schemaName.Append(schema.Name())
			tableName.Append(table.Name())
			tableType.Append("TABLE")
			if c := table.Comment(); c != "" {
				comment.Append(c)
			} else {
				comment.AppendNull()
			}
		}
	}

	record := builder.NewRecordBatch()
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(TablesSchema), ipc.WithAllocator(allocator))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return buf.Bytes(), nil
}
