package usecase

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
)

// BuildArguments coerces raw form input (every value arrives as a string)
// into a typed argument map matching the tool's input schema. Dispatch is a
// closed tagged-variant set over domain.ParamKind; each kind has its own
// coercion function below.
//
// Policy: missing required parameters fail, optional parameters fall back to
// the schema default or are omitted, and unknown extra inputs are ignored so
// the bridge stays forward-compatible with schema additions. The returned
// map contains only declared keys.
func BuildArguments(schema domain.JSONSchemaProps, raw map[string]string) (map[string]interface{}, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	args := make(map[string]interface{}, len(schema.Properties))
	for name, prop := range schema.Properties {
		value, present := raw[name]

		// An empty string only counts as a value for string parameters;
		// everywhere else it is an empty form input, i.e. absent.
		if present && value == "" && domain.KindOf(prop) != domain.ParamKindString {
			present = false
		}

		if !present {
			if required[name] {
				return nil, &domain.ValidationError{Kind: domain.ValidationMissingRequired, Field: name}
			}
			if prop.Default != nil {
				args[name] = prop.Default
			}
			continue
		}

		coerced, err := coerceValue(name, prop, value)
		if err != nil {
			return nil, err
		}
		args[name] = coerced
	}
	return args, nil
}

func coerceValue(name string, prop domain.JSONSchemaProps, raw string) (interface{}, error) {
	switch domain.KindOf(prop) {
	case domain.ParamKindString:
		return raw, nil
	case domain.ParamKindNumber:
		return coerceNumber(name, prop, raw)
	case domain.ParamKindInteger:
		return coerceInteger(name, prop, raw)
	case domain.ParamKindBoolean:
		return coerceBoolean(name, raw)
	case domain.ParamKindStructured:
		return coerceStructured(name, raw)
	default:
		return raw, nil
	}
}

func coerceNumber(name string, prop domain.JSONSchemaProps, raw string) (interface{}, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, &domain.ValidationError{
			Kind:   domain.ValidationMalformedStructuredInput,
			Field:  name,
			Detail: fmt.Sprintf("not a number: %q", raw),
		}
	}
	if err := checkBounds(name, prop, f); err != nil {
		return nil, err
	}
	return f, nil
}

func coerceInteger(name string, prop domain.JSONSchemaProps, raw string) (interface{}, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil, &domain.ValidationError{
			Kind:   domain.ValidationMalformedStructuredInput,
			Field:  name,
			Detail: fmt.Sprintf("not an integer: %q", raw),
		}
	}
	if err := checkBounds(name, prop, float64(i)); err != nil {
		return nil, err
	}
	return i, nil
}

func checkBounds(name string, prop domain.JSONSchemaProps, v float64) error {
	if prop.Minimum != nil && v < *prop.Minimum {
		return &domain.ValidationError{
			Kind:   domain.ValidationOutOfBounds,
			Field:  name,
			Detail: fmt.Sprintf("%v is below minimum %v", v, *prop.Minimum),
		}
	}
	if prop.Maximum != nil && v > *prop.Maximum {
		return &domain.ValidationError{
			Kind:   domain.ValidationOutOfBounds,
			Field:  name,
			Detail: fmt.Sprintf("%v is above maximum %v", v, *prop.Maximum),
		}
	}
	return nil
}

// coerceBoolean accepts checkbox-style truthy flags.
func coerceBoolean(name, raw string) (interface{}, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1", "checked", "yes":
		return true, nil
	case "", "false", "off", "0", "no":
		return false, nil
	default:
		return nil, &domain.ValidationError{
			Kind:   domain.ValidationMalformedStructuredInput,
			Field:  name,
			Detail: fmt.Sprintf("not a boolean flag: %q", raw),
		}
	}
}

// coerceStructured parses the raw string as JSON for array/object parameters.
func coerceStructured(name, raw string) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &domain.ValidationError{
			Kind:   domain.ValidationMalformedStructuredInput,
			Field:  name,
			Detail: err.Error(),
		}
	}
	return v, nil
}
