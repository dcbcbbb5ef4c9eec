package toolkit

import (
	"fmt"
	"strconv"
)

// Argument bags arrive as string-keyed maps decoded from JSON or YAML,
// so numbers may be float64, int, or numeric strings depending on the
// caller. These helpers coerce without the dispatcher enforcing any
// schema; validation beyond shape stays in each handler.

// String returns args[key] as a string and whether it was present.
// Non-string values are rendered with fmt.
func String(args map[string]interface{}, key string) (string, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", value), true
}

// StringOr returns args[key] as a string, or def if absent.
func StringOr(args map[string]interface{}, key, def string) string {
	if s, ok := String(args, key); ok && s != "" {
		return s
	}
	return def
}

// Float returns args[key] as a float64 and whether it was coercible.
func Float(args map[string]interface{}, key string) (float64, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	return toFloat(value)
}

// FloatOr returns args[key] as a float64, or def if absent or not
// coercible.
func FloatOr(args map[string]interface{}, key string, def float64) float64 {
	if f, ok := Float(args, key); ok {
		return f
	}
	return def
}

// Int returns args[key] as an int and whether it was coercible.
func Int(args map[string]interface{}, key string) (int, bool) {
	f, ok := Float(args, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// IntOr returns args[key] as an int, or def if absent or not coercible.
func IntOr(args map[string]interface{}, key string, def int) int {
	if n, ok := Int(args, key); ok {
		return n
	}
	return def
}

// Bool returns args[key] as a bool and whether it was coercible.
func Bool(args map[string]interface{}, key string) (bool, bool) {
	value, ok := args[key]
	if !ok {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, false
		}
		return b, true
	}
	return false, false
}

// BoolOr returns args[key] as a bool, or def if absent or not coercible.
func BoolOr(args map[string]interface{}, key string, def bool) bool {
	if b, ok := Bool(args, key); ok {
		return b
	}
	return def
}

// Floats returns args[key] as a float64 slice. It accepts []float64
// directly and []interface{} of coercible elements; a single
// non-coercible element fails the whole conversion.
func Floats(args map[string]interface{}, key string) ([]float64, bool) {
	value, ok := args[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out, true
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

// Strings returns args[key] as a string slice, accepting []string and
// []interface{} of strings.
func Strings(args map[string]interface{}, key string) ([]string, bool) {
	value, ok := args[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Map returns args[key] as a nested argument bag.
func Map(args map[string]interface{}, key string) (map[string]interface{}, bool) {
	value, ok := args[key]
	if !ok {
		return nil, false
	}
	m, ok := value.(map[string]interface{})
	return m, ok
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
