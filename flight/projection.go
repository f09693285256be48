package flight

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ProjectSchema returns the fields of schema named in columns, in the order
// of columns. Unknown names are skipped; when nothing remains, or no columns
// are given, schema is returned unchanged. This matches the projection
// applied by table scans.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}
	fields := make([]arrow.Field, 0, len(columns))
	for _, name := range columns {
		if idx := schema.FieldIndices(name); len(idx) > 0 {
			fields = append(fields, schema.Field(idx[0]))
		}
	}
	if len(fields) == 0 {
		return schema
	}
	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}
