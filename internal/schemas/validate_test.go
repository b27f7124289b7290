package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reactorListSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "array",
	"items": {
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"profile_url": {"type": "string"},
			"title_line": {"type": "string"}
		},
		"required": ["name"]
	}
}`

func TestValidateJSONString_Valid(t *testing.T) {
	payload := `[{"name": "Ada Lovelace", "title_line": "Engineer at Analytical Engines"}]`

	err := ValidateJSONString(reactorListSchema, payload)
	assert.NoError(t, err)
}

func TestValidateJSONString_MissingRequiredField(t *testing.T) {
	payload := `[{"profile_url": "https://www.linkedin.com/in/ada"}]`

	err := ValidateJSONString(reactorListSchema, payload)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotEmpty(t, ve.Errors)
	assert.Contains(t, ve.Error(), "name")
}

func TestValidateJSONString_WrongType(t *testing.T) {
	payload := `[{"name": 42}]`

	err := ValidateJSONString(reactorListSchema, payload)
	require.Error(t, err)

	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestValidateJSONString_InvalidSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": not-json`, `{}`)
	require.Error(t, err)

	var sle *SchemaLoadError
	assert.ErrorAs(t, err, &sle)
}

func TestValidateJSON_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()

	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(reactorListSchema), 0o644))

	docPath := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(docPath, []byte(`[{"name": "Grace"}]`), 0o644))

	assert.NoError(t, ValidateJSON(schemaPath, docPath))
}

func TestValidateJSON_MissingFiles(t *testing.T) {
	dir := t.TempDir()

	err := ValidateJSON(filepath.Join(dir, "missing.json"), filepath.Join(dir, "doc.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema file not found")
}
