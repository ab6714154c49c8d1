package tools

import (
	"strings"

	"gitingest-mcp/server/internal/apperr"
)

// ValidateParams checks params against InputSchema.
// - Required fields: returns error if missing or an empty string
// - Type check: verifies value matches declared property type
// - JSON numbers (float64) are kept as-is
// Undeclared params are passed through. Returns params (a new map when nil).
func ValidateParams(schema InputSchema, params map[string]any) (map[string]any, error) {
	if params == nil {
		params = make(map[string]any)
	}

	var missing []string
	for _, key := range schema.Required {
		val, exists := params[key]
		if !exists || val == nil {
			missing = append(missing, key)
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.InvalidInput("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	for key, val := range params {
		prop, declared := schema.Properties[key]
		if !declared || val == nil {
			continue
		}
		if err := checkType(key, val, prop.Type); err != nil {
			return nil, err
		}
	}

	return params, nil
}

// checkType verifies that val matches the expected JSON Schema type.
func checkType(key string, val any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := val.(string); !ok {
			return apperr.InvalidInput("parameter %q: expected string, got %T", key, val)
		}
	case "number", "integer":
		if _, ok := val.(float64); !ok {
			return apperr.InvalidInput("parameter %q: expected number, got %T", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return apperr.InvalidInput("parameter %q: expected boolean, got %T", key, val)
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return apperr.InvalidInput("parameter %q: expected array, got %T", key, val)
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return apperr.InvalidInput("parameter %q: expected object, got %T", key, val)
		}
	}
	return nil
}

// StringArg returns params[key] as a trimmed string, or "".
func StringArg(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return strings.TrimSpace(s)
}

// BoolArg returns params[key] as a bool, or false.
func BoolArg(params map[string]any, key string) bool {
	b, _ := params[key].(bool)
	return b
}

// NumberArg returns params[key] as a float64, or 0.
func NumberArg(params map[string]any, key string) float64 {
	n, _ := params[key].(float64)
	return n
}
