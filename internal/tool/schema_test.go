package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchemaMarksRequiredAndArrayItems(t *testing.T) {
	d := semanticSearchImages()
	schema := JSONSchema(d)

	assert.Equal(t, "object", schema["type"])
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "query")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	tagsSchema, ok := props["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", tagsSchema["type"])
	items, ok := tagsSchema["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", items["type"])
}
