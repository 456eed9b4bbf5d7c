package oauth

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StringField reads m[key] as a string. Numbers (json.Number or float64) are
// formatted without exponent so numeric ids survive. Anything else is "".
func StringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// BoolField reads m[key] as a bool. Some providers send "true"/"false" strings.
func BoolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

// FirstString returns the first non-empty StringField among keys.
func FirstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := StringField(m, k); s != "" {
			return s
		}
	}
	return ""
}
