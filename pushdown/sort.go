package pushdown

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/errs"
)

// TranslateSort converts ORDER BY keys into a native sort document with the
// keys in input order. Gap-filling modifiers are rejected: the store's cursor
// order does not provide the dense domain they need.
func (t *Translator) TranslateSort(keys []SortKey) (bson.D, error) {
	out := make(bson.D, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k.WithFill {
			return nil, errs.Pushdown(errs.ErrUnsupportedPushdown, k.Column, "ORDER BY "+k.Column+" WITH FILL",
				"WITH FILL cannot be pushed down")
		}
		col, ok := t.column(k.Column)
		if !ok {
			return nil, errs.Pushdown(errs.ErrUnsupportedPushdown, k.Column, "ORDER BY "+k.Column, "unknown column")
		}
		if _, dup := seen[col.Name]; dup {
			continue
		}
		seen[col.Name] = struct{}{}
		dir := 1
		if k.Descending {
			dir = -1
		}
		out = append(out, bson.E{Key: col.Name, Value: dir})
	}
	return out, nil
}
