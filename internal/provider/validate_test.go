package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["summary"],
	"properties": {
		"summary": {"type": "string"}
	}
}`

func TestCompileSchemaAndValidateSuccess(t *testing.T) {
	s, err := CompileSchema("test-schema.json", []byte(testSchema))
	require.NoError(t, err)

	obj, err := validateAgainstSchema(s, `{"summary": "a file that does things"}`)
	require.NoError(t, err)
	assert.Equal(t, "a file that does things", obj["summary"])
}

func TestValidateAgainstSchemaRejectsMissingRequiredField(t *testing.T) {
	s, err := CompileSchema("test-schema-2.json", []byte(testSchema))
	require.NoError(t, err)

	_, err = validateAgainstSchema(s, `{"other": "field"}`)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestValidateAgainstSchemaRejectsInvalidJSON(t *testing.T) {
	s, err := CompileSchema("test-schema-3.json", []byte(testSchema))
	require.NoError(t, err)

	_, err = validateAgainstSchema(s, `not json at all`)
	assert.ErrorIs(t, err, ErrResponseNotJSON)
}

func TestValidateAgainstSchemaNilSchemaSkipsValidation(t *testing.T) {
	obj, err := validateAgainstSchema(nil, `{"summary": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", obj["summary"])
}
