package validate

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

type Schema = jsonschema.Schema

// Compile builds a schema from raw JSON Schema bytes with format assertions on.
func Compile(schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func Validate(schema *Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
