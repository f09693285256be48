// Package filter parses the filter pushdown JSON sent by the DuckDB Airport
// extension and lowers it into pushdown expressions.
//
// # Basic Usage
//
//	fp, err := filter.Parse(scanOpts.Filter)
//	if err != nil {
//	    return err // Malformed JSON
//	}
//	expr, err := filter.Lower(fp)
//
// Filters are implicitly AND'ed. Expressions with no pushdown counterpart
// (function calls, casts, CASE, column-to-column comparisons) are lowered to
// pushdown.Unsupported so the translator can reject them or leave them to
// DuckDB.
package filter
