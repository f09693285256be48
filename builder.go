package docbridge

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/connection"
	"github.com/hugr-lab/docbridge/mongotable"
)

// SimpleTableDef defines a table with fixed schema served by a scan function.
// Used with SchemaBuilder.SimpleTable().
type SimpleTableDef struct {
	// Name is the table name.
	// REQUIRED: MUST be non-empty and unique within schema.
	Name string

	Comment string

	// Schema is the Arrow schema describing table columns.
	// REQUIRED: MUST NOT be nil.
	Schema *arrow.Schema

	// ScanFunc provides table data as RecordReader.
	// REQUIRED: MUST NOT be nil.
	ScanFunc catalog.ScanFunc
}

// MongoConfig is shared by every collection table of a catalog.
type MongoConfig struct {
	// Resolver looks up named connections. A nil Resolver accepts only
	// sources with a URI or host.
	Resolver *connection.Resolver

	// Clients shares store clients between tables.
	// REQUIRED when the catalog has collection tables. The caller closes it.
	Clients *mongotable.ClientCache

	// Options tune every table. Nil means mongotable.DefaultOptions().
	Options *mongotable.Options
}

type tableEntry struct {
	name   string
	simple *SimpleTableDef
	mongo  *mongotable.TableDef
	table  catalog.Table
}

// CatalogBuilder builds static catalogs using fluent API.
// Not thread-safe - use only during initialization.
type CatalogBuilder struct {
	schemas []*schemaBuilder
	mongo   MongoConfig
	built   bool
}

// NewCatalogBuilder creates a new fluent catalog builder.
//
// Example:
//
//	cat, err := docbridge.NewCatalogBuilder().
//	    Mongo(docbridge.MongoConfig{Clients: clients}).
//	    Schema("main").
//	        MongoTable(ordersDef).
//	    Build()
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{}
}

// Mongo sets the configuration used by MongoTable definitions.
func (cb *CatalogBuilder) Mongo(cfg MongoConfig) *CatalogBuilder {
	cb.mongo = cfg
	return cb
}

// Schema starts defining a new schema.
// Schema name MUST be non-empty and unique within catalog.
func (cb *CatalogBuilder) Schema(name string) *SchemaBuilder {
	sb := &schemaBuilder{name: name, catalogBuilder: cb}
	cb.schemas = append(cb.schemas, sb)
	return &SchemaBuilder{builder: sb}
}

// Build validates the definitions, resolves the connections of collection
// tables and returns an immutable Catalog. It can only be called once.
func (cb *CatalogBuilder) Build() (catalog.Catalog, error) {
	if cb.built {
		return nil, fmt.Errorf("catalog already built")
	}

	seen := make(map[string]bool)
	for _, sb := range cb.schemas {
		if sb.name == "" {
			return nil, fmt.Errorf("schema name cannot be empty")
		}
		if seen[sb.name] {
			return nil, fmt.Errorf("duplicate schema name: %s", sb.name)
		}
		seen[sb.name] = true
		if err := sb.validate(); err != nil {
			return nil, err
		}
	}

	opts := mongotable.DefaultOptions()
	if cb.mongo.Options != nil {
		opts = *cb.mongo.Options
	}

	cat := catalog.NewStaticCatalog()
	for _, sb := range cb.schemas {
		tables := make(map[string]catalog.Table, len(sb.tables))
		for _, e := range sb.tables {
			switch {
			case e.simple != nil:
				tables[e.name] = catalog.NewStaticTable(e.simple.Name, e.simple.Comment, e.simple.Schema, e.simple.ScanFunc)
			case e.mongo != nil:
				t, err := mongotable.New(*e.mongo, cb.mongo.Resolver, cb.mongo.Clients, opts)
				if err != nil {
					return nil, fmt.Errorf("schema %s: %w", sb.name, err)
				}
				tables[e.name] = t
			default:
				tables[e.name] = e.table
			}
		}
		cat.AddSchema(sb.name, sb.comment, tables)
	}

	cb.built = true
	return cat, nil
}

// SchemaBuilder builds a schema within a catalog.
// Not thread-safe - use only during initialization.
type SchemaBuilder struct {
	builder *schemaBuilder
}

type schemaBuilder struct {
	name           string
	comment        string
	tables         []tableEntry
	catalogBuilder *CatalogBuilder
}

func (sb *schemaBuilder) validate() error {
	names := make(map[string]bool)
	for _, e := range sb.tables {
		if e.name == "" {
			return fmt.Errorf("table name cannot be empty in schema %s", sb.name)
		}
		if names[e.name] {
			return fmt.Errorf("duplicate table name %s in schema %s", e.name, sb.name)
		}
		names[e.name] = true

		switch {
		case e.simple != nil:
			if e.simple.Schema == nil {
				return fmt.Errorf("table %s.%s has nil schema", sb.name, e.name)
			}
			if e.simple.ScanFunc == nil {
				return fmt.Errorf("table %s.%s has nil scan function", sb.name, e.name)
			}
		case e.mongo != nil:
			if len(e.mongo.Columns) == 0 {
				return fmt.Errorf("table %s.%s has no columns", sb.name, e.name)
			}
		case e.table == nil:
			return fmt.Errorf("table %s.%s is nil", sb.name, e.name)
		}
	}
	return nil
}

// Comment sets optional schema documentation.
func (sb *SchemaBuilder) Comment(comment string) *SchemaBuilder {
	sb.builder.comment = comment
	return sb
}

// SimpleTable adds a table with fixed schema using SimpleTableDef.
func (sb *SchemaBuilder) SimpleTable(def SimpleTableDef) *SchemaBuilder {
	sb.builder.tables = append(sb.builder.tables, tableEntry{name: def.Name, simple: &def})
	return sb
}

// MongoTable adds a table backed by a document collection. Its connection
// is resolved by Build using the builder's MongoConfig.
func (sb *SchemaBuilder) MongoTable(def mongotable.TableDef) *SchemaBuilder {
	sb.builder.tables = append(sb.builder.tables, tableEntry{name: def.Name, mongo: &def})
	return sb
}

// Table adds an existing catalog.Table.
func (sb *SchemaBuilder) Table(t catalog.Table) *SchemaBuilder {
	e := tableEntry{table: t}
	if t != nil {
		e.name = t.Name()
	}
	sb.builder.tables = append(sb.builder.tables, e)
	return sb
}

// Schema starts a new schema definition.
// Allows chaining: Schema("a").SimpleTable(...).Schema("b").MongoTable(...)
func (sb *SchemaBuilder) Schema(name string) *SchemaBuilder {
	return sb.builder.catalogBuilder.Schema(name)
}

// Build finalizes the catalog. Same as calling CatalogBuilder.Build().
func (sb *SchemaBuilder) Build() (catalog.Catalog, error) {
	return sb.builder.catalogBuilder.Build()
}
