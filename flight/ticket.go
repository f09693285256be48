package flight

import (
	"encoding/json"
	"fmt"

	"github.com/hugr-lab/docbridge/catalog"
)

// TicketData is the decoded content of a Flight ticket. Tickets are JSON so
// they can be inspected while debugging.
type TicketData struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`

	// Columns to project (optional, nil means all columns)
	Columns []string `json:"columns,omitempty"`

	// Filters is the filter JSON DuckDB sent with the endpoints request,
	// kept verbatim.
	Filters json.RawMessage `json:"filters,omitempty"`

	OrderBy []catalog.OrderBy `json:"order_by,omitempty"`
	Limit   int64             `json:"limit,omitempty"`
}

// EncodeTicket serializes td after validating its names.
func EncodeTicket(td *TicketData) ([]byte, error) {
	if err := td.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}
	var td TicketData
	if err := json.Unmarshal(ticketBytes, &td); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if err := td.validate(); err != nil {
		return nil, err
	}
	return &td, nil
}

func (td *TicketData) validate() error {
	if td.Schema == "" {
		return fmt.Errorf("ticket has empty schema name")
	}
	if td.Table == "" {
		return fmt.Errorf("ticket has empty table name")
	}
	if td.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", td.Limit)
	}
	for _, o := range td.OrderBy {
		if o.Column == "" {
			return fmt.Errorf("order by column cannot be empty")
		}
	}
	return nil
}

// ToScanOptions converts td to catalog.ScanOptions.
func (td *TicketData) ToScanOptions() *catalog.ScanOptions {
	opts := &catalog.ScanOptions{
		Columns: td.Columns,
		OrderBy: td.OrderBy,
		Limit:   td.Limit,
	}
	if len(td.Filters) > 0 && string(td.Filters) != "null" {
		opts.Filter = td.Filters
	}
	return opts
}
