package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ParamSpec describes one RPC parameter for schema validation.
type ParamSpec struct {
	Name        string
	Type        string // string, integer, number, boolean, object, array
	Description string
	Required    bool
}

// MethodSchema validates a params map against a compiled JSON Schema before
// the method handler runs. Unknown parameters are rejected.
type MethodSchema struct {
	schema *gojsonschema.Schema
}

// NewMethodSchema compiles a schema from parameter specs.
func NewMethodSchema(params []ParamSpec) (*MethodSchema, error) {
	properties := make(map[string]interface{}, len(params))
	required := []string{}

	for _, param := range params {
		properties[param.Name] = map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("failed to compile method schema: %w", err)
	}

	return &MethodSchema{schema: schema}, nil
}

// mustSchema compiles a static schema and panics on failure. Method schemas
// are fixed at registration time, so a failure here is a programming error.
func mustSchema(params []ParamSpec) *MethodSchema {
	schema, err := NewMethodSchema(params)
	if err != nil {
		panic(err)
	}
	return schema
}

// Validate checks a params map against the schema. Violations are returned
// as an InvalidParams RPC error.
func (m *MethodSchema) Validate(params map[string]interface{}) error {
	if m == nil || m.schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := m.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			details = append(details, violation.String())
		}
		return &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("invalid params: %s", strings.Join(details, "; ")),
		}
	}

	return nil
}

// withSchema wraps a handler so its params are validated first.
func withSchema(schema *MethodSchema, handler RequestHandler) RequestHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		if err := schema.Validate(params); err != nil {
			return nil, err
		}
		return handler(ctx, params)
	}
}
