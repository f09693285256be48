package coerce

import (
	"time"

	"github.com/hugr-lab/docbridge/docjson"
	"github.com/hugr-lab/docbridge/errs"
	"github.com/hugr-lab/docbridge/rawvalue"
	"github.com/hugr-lab/docbridge/schema"
)

var (
	maxDate       = time.Date(2149, 6, 6, 0, 0, 0, 0, time.UTC)
	maxDate32     = time.Date(2299, 12, 31, 0, 0, 0, 0, time.UTC)
	maxDateTime   = time.Unix(1<<32-1, 0).UTC()
	maxDateTime64 = time.Date(2299, 12, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	epoch         = time.Unix(0, 0).UTC()
)

// Granularity returns the resolution of a temporal kind.
func Granularity(k schema.Kind) time.Duration {
	switch k {
	case schema.KindDate, schema.KindDate32:
		return 24 * time.Hour
	case schema.KindDateTime:
		return time.Second
	}
	return time.Millisecond
}

// Truncate floors t to the resolution of k.
func Truncate(t time.Time, k schema.Kind) time.Time {
	ms := t.UnixMilli()
	step := Granularity(k).Milliseconds()
	q := ms / step
	if ms%step != 0 && ms < 0 {
		q--
	}
	return time.UnixMilli(q * step).UTC()
}

// Bounds returns the representable range of a temporal kind.
func (c *Coercer) Bounds(k schema.Kind) (lo, hi time.Time) {
	switch k {
	case schema.KindDate:
		return epoch, maxDate
	case schema.KindDate32:
		return c.floor(), maxDate32
	case schema.KindDateTime:
		return epoch, maxDateTime
	}
	return c.floor(), maxDateTime64
}

// toTime accepts DateTime and Timestamp values and truncates them to the
// resolution of the declared kind.
func (c *Coercer) toTime(raw rawvalue.Value, col schema.Column, k schema.Kind) (any, error) {
	var t time.Time
	switch x := raw.(type) {
	case rawvalue.DateTime:
		t = x.Time()
	case rawvalue.Timestamp:
		t = time.UnixMilli(x.Millis()).UTC()
	default:
		return nil, mismatch(col, raw, "expected a date or timestamp")
	}

	t = Truncate(t, k)
	lo, hi := c.Bounds(k)
	if t.Before(lo) || t.After(hi) {
		return nil, errs.Coercion(errs.ErrRange, col.Name, col.DeclaredType(), rawvalue.Shape(raw),
			docjson.FormatTime(t)+" is outside "+docjson.FormatTime(lo)+" .. "+docjson.FormatTime(hi))
	}
	return t, nil
}
