package oasbind

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Adapt reshapes a successful payload to the route's declared response
// schema: type coercion, sanitizing of undeclared fields, and default-filling
// of missing required fields.
//
// It never fails outward. Conversion runs as a typed (value, error) pipeline
// and any failure is discarded right here — logged, original payload returned
// unchanged — because a response-shaping bug must never turn a successful
// operation into a failed one. Error responses (status >= 400) are skipped
// entirely; those bodies belong to the problem-detail mapper.
func Adapt(payload any, route Route, status int) any {
	if status >= http.StatusBadRequest {
		return payload
	}

	schema := responseSchema(route, status)
	if schema == nil {
		return payload
	}

	out, err := convertValue(payload, schema, route.Version)
	if err != nil {
		slog.Warn("response adaptation failed",
			"operation", route.OperationID,
			"status", status,
			"err", err,
		)
		return payload
	}
	return out
}

// responseSchema resolves the schema for a status code: exact match first,
// then the "default" fallback, then the "2XX" range for success codes.
func responseSchema(route Route, status int) *Schema {
	code := strconv.Itoa(status)
	if s, ok := route.Responses[code]; ok {
		return s
	}
	if s, ok := route.Responses["default"]; ok {
		return s
	}
	if strings.HasPrefix(code, "2") {
		if s, ok := route.Responses["2XX"]; ok {
			return s
		}
	}
	return nil
}

func convertValue(data any, s *Schema, version int) (any, error) {
	if s == nil {
		return data, nil
	}
	switch s.Type {
	case "object":
		return convertObject(data, s, version)
	case "array":
		return convertArray(data, s, version)
	default:
		return convertPrimitive(data, s)
	}
}

// convertObject walks a payload object against the schema's properties.
// Declared fields recurse; undeclared fields pass through the sanitizer;
// missing required fields are filled with a type-appropriate default.
func convertObject(data any, s *Schema, version int) (any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}

	result := make(map[string]any, len(obj))
	for key, value := range obj {
		prop, declared := s.Properties[key]
		if declared {
			converted, err := convertValue(value, prop, version)
			if err != nil {
				return nil, err
			}
			result[key] = converted
			continue
		}
		if sanitized, keep := sanitizeField(key, value, version); keep {
			result[key] = sanitized
		}
	}

	for _, name := range s.Required {
		if _, present := result[name]; present {
			continue
		}
		if def := defaultValue(s.Properties[name]); def != nil {
			result[name] = def
		}
	}

	return result, nil
}

// convertArray recurses elementwise into the items schema. Non-array input
// is wrapped as a single-element array.
func convertArray(data any, s *Schema, version int) (any, error) {
	items, ok := data.([]any)
	if !ok {
		return []any{data}, nil
	}

	result := make([]any, len(items))
	for i, item := range items {
		converted, err := convertValue(item, s.Items, version)
		if err != nil {
			return nil, err
		}
		result[i] = converted
	}
	return result, nil
}

func convertPrimitive(data any, s *Schema) (any, error) {
	switch s.Type {
	case "string":
		return convertToString(data, s.Format), nil
	case "integer":
		return convertToInteger(data)
	case "number":
		return convertToNumber(data)
	case "boolean":
		return convertToBoolean(data)
	default:
		return data, nil
	}
}

func convertToString(data any, format string) string {
	if s, ok := data.(string); ok {
		return s
	}
	if t, ok := data.(time.Time); ok {
		switch format {
		case "date-time":
			return t.Format(time.RFC3339)
		case "date":
			return t.Format(time.DateOnly)
		}
	}
	return fmt.Sprintf("%v", data)
}

func convertToInteger(data any) (any, error) {
	switch v := data.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), nil
		}
		return nil, fmt.Errorf("cannot convert %v to integer", v)
	case string:
		return strconv.Atoi(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", data)
	}
}

func convertToNumber(data any) (any, error) {
	switch v := data.(type) {
	case int, int64, float64:
		return v, nil
	case string:
		if !strings.Contains(v, ".") {
			if n, err := strconv.Atoi(v); err == nil {
				return n, nil
			}
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to number", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", data)
	}
}

func convertToBoolean(data any) (any, error) {
	switch v := data.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			return true, nil
		}
		return false, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", data)
	}
}

// sensitivePatterns in a field name get the value replaced with a redaction
// marker; substring match, case-insensitive.
var sensitivePatterns = []string{"password", "secret", "token", "key", "hash"}

const redactionMarker = "[REDACTED]"

// sanitizeField filters fields the schema does not declare. Underscore- and
// internal_-prefixed names are dropped, sensitive names are redacted, and
// from version 2 temporal-looking fields render time values as ISO strings.
// Everything else passes through unchanged.
func sanitizeField(name string, value any, version int) (any, bool) {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "internal_") {
		return nil, false
	}

	lower := strings.ToLower(name)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lower, pattern) {
			return redactionMarker, true
		}
	}

	if version >= 2 && (strings.Contains(lower, "date") || strings.Contains(lower, "time")) {
		if t, ok := value.(time.Time); ok {
			return t.Format(time.RFC3339), true
		}
	}

	return value, true
}

// defaultValue resolves the fill value for a missing required field. The
// schema's own declared default takes priority over the type default.
// Returns nil when the schema declares no usable type.
func defaultValue(s *Schema) any {
	if s == nil {
		return nil
	}
	if s.Default != nil {
		return s.Default
	}
	switch s.Type {
	case "string":
		return ""
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return nil
	}
}
