package remote

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// AsString returns v as a string, or "" when v has no string form.
func AsString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// AsInt64 returns v as an integer. Fractional values round half away from
// zero; anything unparseable is 0.
func AsInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(math.Round(x))
	case float32:
		return int64(math.Round(float64(x)))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return int64(math.Round(f))
	case string, []byte:
		s := strings.TrimSpace(AsString(x))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		f, _ := strconv.ParseFloat(s, 64)
		return int64(math.Round(f))
	default:
		return 0
	}
}

// AsFloat64 returns v as a float, or 0.
func AsFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string, []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(AsString(x)), 64)
		return f
	default:
		return 0
	}
}

// AsStrings returns v as a string slice. JSON-encoded arrays are decoded;
// non-list values yield nil and non-string elements are skipped.
func AsStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string, []byte:
		var out []string
		if err := json.Unmarshal([]byte(AsString(x)), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

// AsMap returns v as a map. JSON-encoded objects are decoded; anything else
// yields nil.
func AsMap(v any) map[string]any {
	switch x := v.(type) {
	case map[string]any:
		return x
	case Record:
		return x
	case map[string]float64:
		out := make(map[string]any, len(x))
		for k, f := range x {
			out[k] = f
		}
		return out
	case string, []byte:
		var out map[string]any
		if err := json.Unmarshal([]byte(AsString(x)), &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
