package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the scalar types a terminal or export field can hold.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
)

// Value is a scalar field value as delivered by the terminal gateway or a
// delimited export: a number, a string, or null. Coercion helpers return an
// explicit ok flag instead of panicking so callers can apply the best-effort
// drop-on-failure policy used throughout the bridge.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// Null is the absent/null value.
var Null = Value{kind: KindNull}

// Num creates a numeric value.
func Num(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Str creates a string value.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the discriminator for this value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the value as a float64. Strings are coerced best-effort;
// ok is false for null values and non-numeric strings.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text returns the value as a string; ok is false for null.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case KindString:
		return v.str, true
	default:
		return "", false
	}
}

// TextOr returns the string form of the value or def when null.
func (v Value) TextOr(def string) string {
	if s, ok := v.Text(); ok {
		return s
	}
	return def
}

// FloatPtr returns a pointer to the coerced float, or nil when coercion
// fails. Used to populate sparse records where null means "omit".
func (v Value) FloatPtr() *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

// MarshalJSON renders the underlying scalar (null, number, or string).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON scalar. Objects and arrays are rejected by
// falling back to the raw string form so a malformed gateway payload never
// aborts decoding of the surrounding row.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*v = Null
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Num(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Str(s)
		return nil
	}
	*v = Str(trimmed)
	return nil
}

// FieldRow maps field names to scalar values for one ticker or one export
// line. Map semantics: no key ordering, no duplicate keys.
type FieldRow map[string]Value

// Get returns the value for name, Null when absent.
func (r FieldRow) Get(name string) Value {
	if v, ok := r[name]; ok {
		return v
	}
	return Null
}

// HasError reports whether the row is a per-ticker error payload from the
// terminal gateway.
func (r FieldRow) HasError() bool {
	_, ok := r["error"]
	return ok
}

// ErrorText returns the error payload text, empty when the row is not an
// error row.
func (r FieldRow) ErrorText() string {
	return r.Get("error").TextOr("")
}
