package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Runtime value representation. The engine keeps rows loosely typed, one of:
//
//   nil        : SQL NULL
//   bool       : boolean
//   int64      : int/bigint
//   float64    : float/double/decimal
//   string     : string
//   time.Time  : date/timestamp
//   []Value    : array
//   *Map       : map, insertion ordered
//   Row        : struct
//
// Coerce is the only place arbitrary Go values enter this set.

type Value = interface{}

type Row []Value

// Map keeps key/value pairs in a deterministic order so rendering and row
// sorting are stable. Keys from Go maps are ordered by their rendered form.
type Map struct {
	Keys []Value
	Vals []Value
}

func (self *Map) Len() int { return len(self.Keys) }

// Get does a linear probe, maps here are test fixture sized.
func (self *Map) Get(key Value) (Value, bool) {
	want := FormatValue(key)
	for idx, k := range self.Keys {
		if FormatValue(k) == want {
			return self.Vals[idx], true
		}
	}
	return nil, false
}

func (self *Map) Put(key, val Value) {
	self.Keys = append(self.Keys, key)
	self.Vals = append(self.Vals, val)
}

var (
	ErrNotRowSchema = errors.New("not a row schema")
	ErrRowWidth     = errors.New("row doesn't have expected number of values required by the schema")
)

func coerceInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	default:
		return 0, false
	}
}

func coerceFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		if i, ok := coerceInt(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func coerceTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Coerce converts an arbitrary Go value into the runtime representation of
// the given type. nil is accepted for every type.
func Coerce(v interface{}, ty *Type) (Value, error) {
	if v == nil {
		return nil, nil
	}

	switch ty.Kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case KindInt, KindBigint:
		if i, ok := coerceInt(v); ok {
			return i, nil
		}

	case KindFloat, KindDouble, KindDecimal:
		if f, ok := coerceFloat(v); ok {
			return f, nil
		}

	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}

	case KindDate, KindTimestamp:
		if t, ok := coerceTime(v); ok {
			return t, nil
		}

	case KindArray:
		return coerceArray(v, ty)

	case KindMap:
		return coerceMap(v, ty)

	case KindStruct:
		return coerceStruct(v, ty)
	}

	return nil, fmt.Errorf("cannot use %T value %v as %s", v, v, ty.String())
}

func coerceArray(v interface{}, ty *Type) (Value, error) {
	var in []interface{}
	switch x := v.(type) {
	case []interface{}:
		in = x
	case Row:
		in = x
	case []int:
		for _, e := range x {
			in = append(in, e)
		}
	case []int64:
		for _, e := range x {
			in = append(in, e)
		}
	case []float64:
		for _, e := range x {
			in = append(in, e)
		}
	case []string:
		for _, e := range x {
			in = append(in, e)
		}
	default:
		return nil, fmt.Errorf("cannot use %T value as %s", v, ty.String())
	}

	out := make([]Value, 0, len(in))
	for _, e := range in {
		ev, err := Coerce(e, ty.Elem)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func coerceMap(v interface{}, ty *Type) (Value, error) {
	out := &Map{}

	put := func(k, val interface{}) error {
		kv, err := Coerce(k, ty.Key)
		if err != nil {
			return err
		}
		vv, err := Coerce(val, ty.Elem)
		if err != nil {
			return err
		}
		out.Put(kv, vv)
		return nil
	}

	switch x := v.(type) {
	case *Map:
		for idx, k := range x.Keys {
			if err := put(k, x.Vals[idx]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := put(k, x[k]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case map[interface{}]interface{}:
		type pair struct {
			render string
			key    interface{}
		}
		pairs := make([]pair, 0, len(x))
		for k := range x {
			pairs = append(pairs, pair{render: fmt.Sprintf("%v", k), key: k})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].render < pairs[j].render })
		for _, p := range pairs {
			if err := put(p.key, x[p.key]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case map[int]string:
		keys := make([]int, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		for _, k := range keys {
			if err := put(k, x[k]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case map[string]int:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := put(k, x[k]); err != nil {
				return nil, err
			}
		}
		return out, nil

	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := put(k, x[k]); err != nil {
				return nil, err
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("cannot use %T value as %s", v, ty.String())
	}
}

func coerceStruct(v interface{}, ty *Type) (Value, error) {
	switch x := v.(type) {
	case Row:
		return coerceStructPositional(x, ty)
	case []interface{}:
		return coerceStructPositional(x, ty)

	case map[string]interface{}:
		// named form, every field is looked up by name, missing means NULL
		out := make(Row, 0, len(ty.Fields))
		for _, f := range ty.Fields {
			fv, err := Coerce(x[f.Name], f.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, fv)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("cannot use %T value as %s", v, ty.String())
	}
}

func coerceStructPositional(in []interface{}, ty *Type) (Value, error) {
	if len(in) != len(ty.Fields) {
		return nil, fmt.Errorf(
			"%w (got %d, want %d)", ErrRowWidth, len(in), len(ty.Fields),
		)
	}
	out := make(Row, 0, len(in))
	for idx, f := range ty.Fields {
		fv, err := Coerce(in[idx], f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, nil
}

// CoerceRow converts one produced row into the schema's shape, checking the
// column count first.
func (self *Schema) CoerceRow(vals []interface{}) (Row, error) {
	if len(vals) != len(self.Fields) {
		return nil, fmt.Errorf(
			"%w (got %d, want %d)", ErrRowWidth, len(vals), len(self.Fields),
		)
	}
	out := make(Row, 0, len(vals))
	for idx, f := range self.Fields {
		fv, err := Coerce(vals[idx], f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, nil
}

/* ----------------------------------------------------------------------------
 * Rendering
 * ---------------------------------------------------------------------------*/

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatValue renders a value the way failure messages and Show() print it.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return fmt.Sprintf("%t", x)
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return formatFloat(x)
	case string:
		return fmt.Sprintf("'%s'", x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05")

	case []Value:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, FormatValue(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"

	case *Map:
		parts := make([]string, 0, len(x.Keys))
		for idx, k := range x.Keys {
			parts = append(parts, fmt.Sprintf("%s: %s", FormatValue(k), FormatValue(x.Vals[idx])))
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case Row:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, FormatValue(e))
		}
		return "(" + strings.Join(parts, ", ") + ")"

	default:
		return fmt.Sprintf("%v", x)
	}
}

// FormatRow renders a row with its field names, Row(a=1, b='x') style.
func (self *Schema) FormatRow(row Row) string {
	parts := make([]string, 0, len(row))
	for idx, v := range row {
		name := fmt.Sprintf("c%d", idx)
		if idx < len(self.Fields) {
			name = self.Fields[idx].Name
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, FormatValue(v)))
	}
	return "Row(" + strings.Join(parts, ", ") + ")"
}

// SortKey is a canonical rendering used for row-order-insensitive matching
// and ORDER BY tie breaking.
func SortKey(row Row) string {
	parts := make([]string, 0, len(row))
	for _, v := range row {
		parts = append(parts, FormatValue(v))
	}
	return strings.Join(parts, "\x00")
}
