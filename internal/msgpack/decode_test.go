package msgpack

import (
	"testing"
)

func TestRoundTrip(t *testing.T) {
	type request struct {
		Schema  string   `msgpack:"schema_name"`
		Columns []uint64 `msgpack:"column_ids"`
	}
	data, err := Encode(request{Schema: "main", Columns: []uint64{0, 2}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var got request
	if err := Decode(data, &got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Schema != "main" || len(got.Columns) != 2 || got.Columns[1] != 2 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestDecodeEmpty(t *testing.T) {
	var v map[string]any
	if err := Decode(nil, &v); err == nil {
		t.Error("expected error for empty data")
	}
}
