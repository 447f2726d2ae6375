package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema wraps a compiled JSON schema used to validate a provider's response
// body (spec §4.4 layer 6). Grounded on the stukennedy/kyotee indexer, which
// pulls in github.com/santhosh-tekuri/jsonschema/v5 for the same purpose:
// validating structured LLM output against a known shape.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema parses and compiles a JSON schema document. Callers compile
// once per phase blueprint and reuse the *Schema across calls.
func CompileSchema(name string, schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("provider: add schema resource %s: %w", name, err)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("provider: compile schema %s: %w", name, err)
	}
	return &Schema{compiled: compiled}, nil
}

// validateAgainstSchema decodes text as JSON and validates it against s. It
// is the second half of layer 6: repairJSON produces a best-effort string,
// this confirms the result actually matches the expected shape.
func validateAgainstSchema(s *Schema, text string) (map[string]interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseNotJSON, err)
	}
	if s != nil {
		if err := s.compiled.Validate(decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
		}
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not a JSON object", ErrResponseNotJSON)
	}
	return obj, nil
}
