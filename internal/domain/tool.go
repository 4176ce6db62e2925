package domain

import (
	"sort"
	"strings"
)

// ToolDescriptor describes one callable tool exposed by the downstream
// multiplexed endpoint, compliant with the Model Context Protocol (MCP).
// The gateway prefixes every tool name with its owning server's identifier,
// so QualifiedName is globally unique across all mounted servers.
//
// Descriptors are immutable once fetched; a fresh listing replaces them.
type ToolDescriptor struct {
	// QualifiedName is "{server-prefix}{separator}{tool}" as reported by the
	// downstream. It is used verbatim in tools/call.
	QualifiedName string `json:"qualified_name"`

	// Description is the natural language explanation of what the tool does.
	Description string `json:"description"`

	// InputSchema defines the structure of the arguments the tool expects,
	// in JSON Schema format.
	InputSchema JSONSchemaProps `json:"input_schema"`
}

// serverSeparators lists the prefix separators gateways are known to use,
// in the order they should be tried.
var serverSeparators = []string{"__", "_", ".", "/"}

// ServerPrefix extracts the owning server's identifier from the qualified
// name, or "" when the name carries no recognizable prefix.
func (t ToolDescriptor) ServerPrefix() string {
	for _, sep := range serverSeparators {
		if i := strings.Index(t.QualifiedName, sep); i > 0 {
			return t.QualifiedName[:i]
		}
	}
	return ""
}

// JSONSchemaProps represents the properties of a JSON schema used for tool
// input definitions. This is a simplified subset; anything beyond it is
// ignored rather than rejected.
type JSONSchemaProps struct {
	Type        string                     `json:"type"` // "object", "string", "number", "integer", "boolean", "array"
	Description string                     `json:"description,omitempty"`
	Properties  map[string]JSONSchemaProps `json:"properties,omitempty"` // For type "object"
	Required    []string                   `json:"required,omitempty"`   // For type "object"
	Items       *JSONSchemaProps           `json:"items,omitempty"`      // For type "array"
	Default     interface{}                `json:"default,omitempty"`
	Minimum     *float64                   `json:"minimum,omitempty"`
	Maximum     *float64                   `json:"maximum,omitempty"`
	Enum        []interface{}              `json:"enum,omitempty"`
}

// ParamKind is the closed set of parameter kinds the argument builder and
// form generator dispatch over. Every JSON Schema type collapses into one of
// these.
type ParamKind string

const (
	ParamKindString     ParamKind = "string"
	ParamKindNumber     ParamKind = "number"
	ParamKindInteger    ParamKind = "integer"
	ParamKindBoolean    ParamKind = "boolean"
	ParamKindStructured ParamKind = "structured" // arrays and objects, entered as raw JSON
)

// KindOf maps a schema's declared type onto a ParamKind. Unknown or missing
// types degrade to string passthrough so schema additions don't break older
// bridges.
func KindOf(schema JSONSchemaProps) ParamKind {
	switch schema.Type {
	case "number":
		return ParamKindNumber
	case "integer":
		return ParamKindInteger
	case "boolean":
		return ParamKindBoolean
	case "array", "object":
		return ParamKindStructured
	default:
		return ParamKindString
	}
}

// FormField is the render-ready description of one input on the testing
// page, derived from the tool's input schema.
type FormField struct {
	Name        string        `json:"name"`
	Kind        ParamKind     `json:"kind"`
	Required    bool          `json:"required"`
	Description string        `json:"description,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Minimum     *float64      `json:"minimum,omitempty"`
	Maximum     *float64      `json:"maximum,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// FormFields flattens the descriptor's input schema into field descriptions,
// required parameters first, each group sorted by name for stable rendering.
func (t ToolDescriptor) FormFields() []FormField {
	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}

	fields := make([]FormField, 0, len(t.InputSchema.Properties))
	for name, prop := range t.InputSchema.Properties {
		fields = append(fields, FormField{
			Name:        name,
			Kind:        KindOf(prop),
			Required:    required[name],
			Description: prop.Description,
			Default:     prop.Default,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
			Enum:        prop.Enum,
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].Required != fields[j].Required {
			return fields[i].Required
		}
		return fields[i].Name < fields[j].Name
	})
	return fields
}
