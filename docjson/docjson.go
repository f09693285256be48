// Package docjson renders document-store values as canonical compact JSON.
//
// Output has no whitespace and keeps the source document's field order, so
// the same input always yields the same bytes.
package docjson

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/hugr-lab/docbridge/rawvalue"
)

// DateTimeLayout is the text form of dates and timestamps.
const DateTimeLayout = "2006-01-02 15:04:05"

// Render returns the JSON text of v.
func Render(v rawvalue.Value) (string, error) {
	b, err := Append(nil, v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Append appends the JSON text of v to dst.
func Append(dst []byte, v rawvalue.Value) ([]byte, error) {
	switch x := v.(type) {
	case nil, rawvalue.Null, rawvalue.Missing:
		return append(dst, "null"...), nil
	case rawvalue.Bool:
		return strconv.AppendBool(dst, bool(x)), nil
	case rawvalue.Int32:
		return strconv.AppendInt(dst, int64(x), 10), nil
	case rawvalue.Int64:
		return strconv.AppendInt(dst, int64(x), 10), nil
	case rawvalue.Double:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return append(dst, "null"...), nil
		}
		return strconv.AppendFloat(dst, f, 'g', -1, 64), nil
	case rawvalue.String:
		return AppendString(dst, string(x)), nil
	case rawvalue.Binary:
		return AppendString(dst, base64.StdEncoding.EncodeToString(x.Data)), nil
	case rawvalue.DateTime:
		return AppendString(dst, FormatTime(x.Time())), nil
	case rawvalue.Timestamp:
		return AppendString(dst, FormatTime(time.Unix(int64(x.Seconds), 0))), nil
	case rawvalue.ObjectID:
		return AppendString(dst, x.Hex()), nil
	case rawvalue.Regex:
		dst = append(dst, '{')
		dst = AppendString(dst, x.Pattern)
		dst = append(dst, ':')
		dst = AppendString(dst, x.Flags)
		return append(dst, '}'), nil
	case rawvalue.Document:
		dst = append(dst, '{')
		for i, f := range x {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = AppendString(dst, f.Key)
			dst = append(dst, ':')
			var err error
			if dst, err = Append(dst, f.Value); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	case rawvalue.Array:
		dst = append(dst, '[')
		for i, e := range x {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = Append(dst, e); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	}
	return nil, fmt.Errorf("docjson: unsupported value %T", v)
}

// FormatTime renders t in UTC as "YYYY-MM-DD HH:MM:SS".
func FormatTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

const hexDigits = "0123456789abcdef"

// AppendString appends s as a quoted JSON string. Only quotes, backslashes
// and control characters are escaped; invalid UTF-8 becomes U+FFFD.
func AppendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				dst = append(dst, '\\', c)
			case c == '\n':
				dst = append(dst, '\\', 'n')
			case c == '\r':
				dst = append(dst, '\\', 'r')
			case c == '\t':
				dst = append(dst, '\\', 't')
			case c < 0x20:
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			default:
				dst = append(dst, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, "�"...)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}
