package flight

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/hugr-lab/docbridge/catalog"
)

func TestEncodeDecodeTicket(t *testing.T) {
	tests := []struct {
		name string
		td   TicketData
	}{
		{
			name: "table only",
			td:   TicketData{Schema: "main", Table: "users"},
		},
		{
			name: "full scan request",
			td: TicketData{
				Schema:  "main",
				Table:   "orders",
				Columns: []string{"id", "total"},
				Filters: json.RawMessage(`{"filters":[],"column_binding_names_by_index":["id"]}`),
				OrderBy: []catalog.OrderBy{{Column: "total", Descending: true}},
				Limit:   10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeTicket(&tt.td)
			if err != nil {
				t.Fatalf("EncodeTicket failed: %v", err)
			}
			decoded, err := DecodeTicket(encoded)
			if err != nil {
				t.Fatalf("DecodeTicket failed: %v", err)
			}
			if !reflect.DeepEqual(*decoded, tt.td) {
				t.Errorf("expected %+v, got %+v", tt.td, *decoded)
			}
		})
	}
}

func TestDecodeTicketInvalid(t *testing.T) {
	tests := []struct {
		name   string
		ticket string
	}{
		{"empty", ""},
		{"not json", "users"},
		{"no schema", `{"table":"users"}`},
		{"no table", `{"schema":"main"}`},
		{"negative limit", `{"schema":"main","table":"users","limit":-1}`},
		{"empty order column", `{"schema":"main","table":"users","order_by":[{"column":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTicket([]byte(tt.ticket)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeTicketInvalid(t *testing.T) {
	if _, err := EncodeTicket(&TicketData{Table: "users"}); err == nil {
		t.Error("expected error for empty schema")
	}
}

func TestTicketToScanOptions(t *testing.T) {
	td := TicketData{
		Schema:  "main",
		Table:   "users",
		Columns: []string{"id"},
		Filters: json.RawMessage(`{"filters":[]}`),
		OrderBy: []catalog.OrderBy{{Column: "id"}},
		Limit:   5,
	}
	opts := td.ToScanOptions()
	if string(opts.Filter) != `{"filters":[]}` {
		t.Errorf("expected filter to be kept, got %s", opts.Filter)
	}
	if len(opts.Columns) != 1 || len(opts.OrderBy) != 1 || opts.Limit != 5 {
		t.Errorf("unexpected options %+v", opts)
	}

	td.Filters = json.RawMessage("null")
	if opts := td.ToScanOptions(); opts.Filter != nil {
		t.Errorf("expected no filter, got %s", opts.Filter)
	}
}
