package flight

import (
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/docbridge/internal/recovery"
)

// DoGet streams the record batches of a table scan. The ticket is produced
// by the endpoints action or GetFlightInfo.
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := s.requestLogger(ctx)

	td, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		logger.Error("Failed to decode ticket", "error", err)
		return status.Errorf(codes.InvalidArgument, "invalid ticket: %v", err)
	}
	logger = logger.With("schema", td.Schema, "table", td.Table)
	logger.Debug("DoGet request",
		"columns", td.Columns,
		"has_filters", len(td.Filters) > 0,
		"order_by", len(td.OrderBy),
		"limit", td.Limit,
	)

	table, err := s.lookupTable(ctx, td.Schema, td.Table)
	if err != nil {
		return err
	}

	reader, err := recovery.RecoverToValue(logger, "Scan", func() (array.RecordReader, error) {
		return table.Scan(ctx, td.ToScanOptions())
	})
	if err != nil {
		logger.Error("Table scan failed", "error", err)
		return statusFromError(err, "table scan failed")
	}
	defer reader.Release()

	// Scans return the requested columns in request order.
	want := ProjectSchema(table.ArrowSchema(), td.Columns)
	readerSchema := reader.Schema()
	if !want.Equal(readerSchema) {
		logger.Error("RecordReader schema does not match table schema",
			"expected_fields", want.NumFields(),
			"reader_fields", readerSchema.NumFields(),
		)
		return status.Errorf(codes.Internal,
			"schema mismatch: expected %d fields, reader has %d fields",
			want.NumFields(), readerSchema.NumFields())
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(readerSchema), ipc.WithAllocator(s.allocator))
	defer writer.Close()

	batches, rows := 0, int64(0)
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			logger.Debug("DoGet cancelled by client", "batches_sent", batches, "rows_sent", rows)
			return status.Error(codes.Canceled, "request cancelled")
		}
		record := reader.RecordBatch()
		if err := writer.Write(record); err != nil {
			logger.Error("Failed to write record batch", "batch", batches+1, "error", err)
			return status.Errorf(codes.Internal, "failed to write batch %d: %v", batches+1, err)
		}
		batches++
		rows += record.NumRows()
	}
	if err := reader.Err(); err != nil {
		logger.Error("Scan failed during iteration", "batch", batches, "error", err)
		return statusFromError(err, "scan error after batch %d", batches)
	}

	logger.Debug("DoGet completed", "batches_sent", batches, "total_rows", rows)
	return nil
}
