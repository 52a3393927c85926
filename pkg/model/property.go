package model

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// PropertyType is the declared type of a node or relationship property.
type PropertyType string

const (
	TypeAny      PropertyType = "any"
	TypeString   PropertyType = "string"
	TypeInteger  PropertyType = "integer"
	TypeFloat    PropertyType = "float"
	TypeBoolean  PropertyType = "boolean"
	TypeDateTime PropertyType = "datetime"
)

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	switch t {
	case TypeAny, TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeDateTime:
		return true
	}
	return false
}

// Props holds property values by name.
type Props map[string]any

// Convert coerces v into the representation stored in the graph. Slices are
// converted element by element into a []any. Values that cannot be coerced
// are returned unchanged so the store reports the mismatch.
func (t PropertyType) Convert(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = t.Convert(rv.Index(i).Interface())
		}
		return out
	}

	switch t {
	case TypeString:
		switch x := v.(type) {
		case string:
			return x
		case []byte:
			return string(x)
		case fmt.Stringer:
			return x.String()
		default:
			return fmt.Sprint(x)
		}
	case TypeInteger:
		if i, ok := toInt64(v); ok {
			return i
		}
	case TypeFloat:
		if f, ok := toFloat64(v); ok {
			return f
		}
	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
	case TypeDateTime:
		switch x := v.(type) {
		case time.Time:
			return x.UTC()
		case string:
			if ts, err := time.Parse(time.RFC3339, x); err == nil {
				return ts.UTC()
			}
		default:
			if i, ok := toInt64(v); ok {
				return time.Unix(i, 0).UTC()
			}
		}
	}
	return v
}

func toInt64(v any) (int64, bool) {
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
	case float32:
		if float32(int64(x)) == x {
			return int64(x), true
		}
	case float64:
		if float64(int64(x)) == x {
			return int64(x), true
		}
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// AsInt64 returns v as an int64 when it is an integer of any width.
func AsInt64(v any) (int64, bool) {
	switch v.(type) {
	case float32, float64, string:
		return 0, false
	}
	return toInt64(v)
}
