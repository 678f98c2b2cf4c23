package validation

import (
	"fmt"
	"net/url"
)

// Float returns the named field as a float64, accepting numeric strings.
func Float(payload map[string]interface{}, field string) (float64, bool) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return 0, false
	}
	return toFloat(raw)
}

// Int truncates the named numeric field, or returns def when it is absent.
func Int(payload map[string]interface{}, field string, def int) int {
	if v, ok := Float(payload, field); ok {
		return int(v)
	}
	return def
}

// StringValue returns the named field when it is a string, or "".
func StringValue(payload map[string]interface{}, field string) string {
	if s, ok := payload[field].(string); ok {
		return s
	}
	return ""
}

// Strings flattens a JSON array into its string items.
func Strings(payload map[string]interface{}, field string) []string {
	switch v := payload[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// FromQuery builds a payload from query parameters and path params. Single
// values become strings and repeated values become arrays.
func FromQuery(query url.Values, params map[string]string) map[string]interface{} {
	payload := make(map[string]interface{}, len(query)+len(params))
	for key, values := range query {
		if len(values) == 1 {
			payload[key] = values[0]
			continue
		}
		items := make([]interface{}, len(values))
		for i, v := range values {
			items[i] = v
		}
		payload[key] = items
	}
	for key, value := range params {
		payload[key] = value
	}
	return payload
}
