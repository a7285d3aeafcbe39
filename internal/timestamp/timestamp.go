// Package timestamp normalizes the date shapes found in stored documents and
// scanned ticket payloads into a single time.Time.
//
// Documents written by different clients carry dates as native timestamps,
// ISO-8601 strings, or provider {seconds, nanoseconds} pairs. Normalize is the
// only place that inspects those shapes.
package timestamp

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	Missing Kind = iota
	NativeDate
	ProviderTimestamp
	ISOString
	Unrecognized
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case NativeDate:
		return "native"
	case ProviderTimestamp:
		return "provider"
	case ISOString:
		return "iso"
	default:
		return "unrecognized"
	}
}

// ISOLayout matches the millisecond UTC form browsers produce.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Value is the result of Normalize. Raw keeps the source for diagnostics.
type Value struct {
	Kind Kind
	Raw  any
	t    time.Time
}

// Time converts the value to a time. ok is false for Missing and Unrecognized.
func (v Value) Time() (t time.Time, ok bool) {
	switch v.Kind {
	case NativeDate, ProviderTimestamp, ISOString:
		return v.t, true
	case Missing, Unrecognized:
		return time.Time{}, false
	}
	return time.Time{}, false
}

// Normalize classifies v and resolves it to a time where possible.
func Normalize(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{Kind: Missing}
	case time.Time:
		if x.IsZero() {
			return Value{Kind: Missing, Raw: v}
		}
		return Value{Kind: NativeDate, Raw: v, t: x}
	case *time.Time:
		if x == nil || x.IsZero() {
			return Value{Kind: Missing, Raw: v}
		}
		return Value{Kind: NativeDate, Raw: v, t: *x}
	case string:
		return fromString(x)
	case map[string]any:
		return fromPair(x)
	default:
		return Value{Kind: Unrecognized, Raw: v}
	}
}

func fromString(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{Kind: Missing, Raw: s}
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Value{Kind: ISOString, Raw: s, t: t}
		}
	}
	return Value{Kind: Unrecognized, Raw: s}
}

func fromPair(m map[string]any) Value {
	secRaw, ok := m["seconds"]
	if !ok {
		secRaw, ok = m["_seconds"]
	}
	if !ok {
		return Value{Kind: Unrecognized, Raw: m}
	}
	nanoRaw, ok := m["nanoseconds"]
	if !ok {
		nanoRaw = m["_nanoseconds"]
	}

	sec, ok := toInt64(secRaw)
	if !ok {
		return Value{Kind: Unrecognized, Raw: m}
	}
	nanos, _ := toInt64(nanoRaw)

	return Value{Kind: ProviderTimestamp, Raw: m, t: time.Unix(sec, nanos).UTC()}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// FormatISO renders t as a UTC ISO-8601 string with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// FormatOr renders v as ISO-8601, or placeholder when it holds no time.
func FormatOr(v Value, placeholder string) string {
	if t, ok := v.Time(); ok {
		return FormatISO(t)
	}
	return placeholder
}
