// Package jsontime converts between time.Time values and the ISO-8601
// datetime strings used on the wire. Inbound JSON trees are rewritten so
// that every string leaf matching the strict ISO format becomes a
// time.Time; outbound trees are encoded back to millisecond-precision
// UTC strings with a Z suffix.
package jsontime

import (
	"encoding/json"
	"reflect"
	"regexp"
	"time"
)

// isoDatetimeRe matches the full string only: a date, a T separator, a
// time with optional fraction, and an explicit zone. Looser forms (no
// zone, date only, surrounding whitespace) are left as plain strings.
var isoDatetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

const encodeLayout = "2006-01-02T15:04:05.000"

// Normalize converts t to UTC.
func Normalize(t time.Time) time.Time {
	return t.UTC()
}

// Now returns the current UTC time truncated to millisecond precision,
// matching what Encode can represent.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Encode formats t as a millisecond-precision UTC ISO-8601 string with a
// Z suffix.
func Encode(t time.Time) string {
	return Normalize(t).Format(encodeLayout) + "Z"
}

// Decode parses an ISO-8601 datetime string with an explicit zone and
// returns the instant in UTC.
func Decode(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Rewrite walks a decoded JSON tree in place and converts every string
// leaf matching the ISO datetime format into a time.Time. Converted
// leaves are not descended into.
func Rewrite(obj any) {
	switch node := obj.(type) {
	case map[string]any:
		for k, v := range node {
			node[k] = rewriteValue(v)
		}
	case []any:
		for i, v := range node {
			node[i] = rewriteValue(v)
		}
	}
}

func rewriteValue(v any) any {
	switch leaf := v.(type) {
	case string:
		if isoDatetimeRe.MatchString(leaf) {
			if t, err := Decode(leaf); err == nil {
				return t
			}
		}
		return leaf
	case map[string]any, []any:
		Rewrite(leaf)
		return leaf
	default:
		return v
	}
}

// Marshal encodes body as JSON with every time.Time leaf rendered via
// Encode. Named map and slice types are walked like their underlying
// kinds.
func Marshal(body any) ([]byte, error) {
	return json.Marshal(encodeTree(body))
}

func encodeTree(v any) any {
	if t, ok := v.(time.Time); ok {
		return Encode(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = encodeTree(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = encodeTree(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}
