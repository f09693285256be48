package mongotable

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/catalog"
	"github.com/hugr-lab/docbridge/coerce"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/filter"
	"github.com/hugr-lab/docbridge/internal/metrics"
	"github.com/hugr-lab/docbridge/pushdown"
	"github.com/hugr-lab/docbridge/schema"
)

// Query is the native find planned for one scan.
type Query struct {
	// Columns are the bound columns in output order.
	Columns schema.Columns
	// Filter matches a superset of the requested rows, or exactly the
	// requested rows when Exact is set.
	Filter     bson.D
	Exact      bool
	Sort       bson.D
	Projection bson.D
	// Limit is zero when the limit is left to the engine.
	Limit int64
}

// Plan translates scan options into a Query without touching the store.
func (t *Table) Plan(opts *catalog.ScanOptions) (*Query, error) {
	q := &Query{Columns: t.columns.Project(opts.Columns)}

	expr, err := parseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	tr := pushdown.NewTranslator(t.columns, t.coercer)
	tr.ThrowOnUnsupported = t.opts.ThrowOnUnsupported
	res, err := tr.Translate(expr)
	if err != nil {
		return nil, err
	}
	metrics.ObservePushdown(t.name, len(res.Filter) > 0 || res.FullyPushed, res.FullyPushed)
	q.Filter = res.Filter
	q.Exact = res.FullyPushed

	keys := make([]pushdown.SortKey, len(opts.OrderBy))
	for i, o := range opts.OrderBy {
		keys[i] = pushdown.SortKey{Column: o.Column, Descending: o.Descending, WithFill: o.WithFill}
	}
	if q.Sort, err = tr.TranslateSort(keys); err != nil {
		return nil, err
	}

	// A limit over a superset would drop matching rows.
	if opts.Limit > 0 && q.Exact {
		q.Limit = opts.Limit
	}
	q.Projection = projection(q.Columns)
	return q, nil
}

func parseFilter(data []byte) (pushdown.Expr, error) {
	if len(data) == 0 {
		return nil, nil
	}
	fp, err := filter.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedPushdown, err)
	}
	expr, err := filter.Lower(fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnsupportedPushdown, err)
	}
	return expr, nil
}

// projection includes the bound columns only. Field names that the store
// would read as paths or operators disable projection.
func projection(cols schema.Columns) bson.D {
	p := make(bson.D, 0, len(cols)+1)
	withID := false
	for _, c := range cols {
		if strings.ContainsAny(c.Name, ".$") || c.Name == "" {
			return nil
		}
		if c.Name == coerce.IdentityField {
			withID = true
		}
		p = append(p, bson.E{Key: c.Name, Value: 1})
	}
	if !withID {
		p = append(p, bson.E{Key: coerce.IdentityField, Value: 0})
	}
	return p
}
