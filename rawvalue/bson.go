package rawvalue

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hugr-lab/docbridge/errs"
)

// DefaultMaxDepth bounds the nesting of documents and arrays accepted by FromBSON.
const DefaultMaxDepth = 100

// FromRaw decodes a BSON document into a Document.
func FromRaw(raw bson.Raw, maxDepth int) (Document, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return fromDocument(raw, maxDepth)
}

// FromBSON decodes one BSON value. Nesting deeper than maxDepth fails
// with errs.ErrTypeMismatch.
func FromBSON(rv bson.RawValue, maxDepth int) (Value, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return fromValue(rv, maxDepth)
}

func fromDocument(raw bson.Raw, depth int) (Document, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc := make(Document, 0, len(elems))
	for _, e := range elems {
		v, err := fromValue(e.Value(), depth)
		if err != nil {
			return nil, err
		}
		doc = append(doc, Field{Key: e.Key(), Value: v})
	}
	return doc, nil
}

func fromValue(rv bson.RawValue, depth int) (Value, error) {
	switch rv.Type {
	case bson.TypeNull, bson.TypeUndefined:
		return Null{}, nil
	case bson.TypeBoolean:
		return Bool(rv.Boolean()), nil
	case bson.TypeInt32:
		return Int32(rv.Int32()), nil
	case bson.TypeInt64:
		return Int64(rv.Int64()), nil
	case bson.TypeDouble:
		return Double(rv.Double()), nil
	case bson.TypeString:
		return String(rv.StringValue()), nil
	case bson.TypeSymbol:
		return String(rv.Symbol()), nil
	case bson.TypeDecimal128:
		return String(rv.Decimal128().String()), nil
	case bson.TypeBinary:
		subtype, data := rv.Binary()
		return Binary{Subtype: subtype, Data: data}, nil
	case bson.TypeDateTime:
		return DateTime(rv.DateTime()), nil
	case bson.TypeTimestamp:
		t, i := rv.Timestamp()
		return Timestamp{Seconds: t, Counter: i}, nil
	case bson.TypeObjectID:
		return ObjectID(rv.ObjectID()), nil
	case bson.TypeRegex:
		pattern, flags := rv.Regex()
		return Regex{Pattern: pattern, Flags: flags}, nil
	case bson.TypeEmbeddedDocument:
		if depth <= 1 {
			return nil, tooDeep()
		}
		return fromDocument(rv.Document(), depth-1)
	case bson.TypeArray:
		if depth <= 1 {
			return nil, tooDeep()
		}
		values, err := rv.Array().Values()
		if err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		arr := make(Array, 0, len(values))
		for _, ev := range values {
			v, err := fromValue(ev, depth-1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	}
	return nil, errs.Coercion(errs.ErrTypeMismatch, "", "", rv.Type.String(), "unsupported BSON type")
}

func tooDeep() error {
	return errs.Coercion(errs.ErrTypeMismatch, "", "", "nested document", "nesting exceeds the maximum depth")
}
