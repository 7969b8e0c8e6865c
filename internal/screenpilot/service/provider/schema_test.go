package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeSchemaStripsUnknownKeys(t *testing.T) {
	in := map[string]interface{}{
		"type":                 "object",
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":    "string",
				"default": "/tmp",
			},
		},
	}

	out, ok := SanitizeSchema(in, false).(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", out["type"])
	assert.NotContains(t, out, "$schema")
	assert.NotContains(t, out, "additionalProperties")

	props := out["properties"].(map[string]interface{})
	path := props["path"].(map[string]interface{})
	assert.Equal(t, "string", path["type"])
	assert.NotContains(t, path, "default")
}

func TestSanitizeSchemaUppercasesTypes(t *testing.T) {
	in := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"count": map[string]interface{}{"type": "integer"},
			"tags": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}

	out := SanitizeSchema(in, true).(map[string]interface{})
	assert.Equal(t, "OBJECT", out["type"])

	props := out["properties"].(map[string]interface{})
	assert.Equal(t, "INTEGER", props["count"].(map[string]interface{})["type"])
	tags := props["tags"].(map[string]interface{})
	assert.Equal(t, "ARRAY", tags["type"])
	assert.Equal(t, "STRING", tags["items"].(map[string]interface{})["type"])
}

func TestNormalizeObjectSchemaDefaultsType(t *testing.T) {
	out := NormalizeObjectSchema(map[string]interface{}{}, false)
	assert.Equal(t, "object", out["type"])

	out = NormalizeObjectSchema(nil, true)
	assert.Equal(t, "OBJECT", out["type"])
}

func TestNormalizeObjectSchemaDropsPhantomRequired(t *testing.T) {
	in := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
		},
		"required": []interface{}{"x", "ghost", ""},
	}

	out := NormalizeObjectSchema(in, false)
	assert.Equal(t, []interface{}{"x"}, out["required"])
}

func TestNormalizeObjectSchemaRemovesEmptyRequired(t *testing.T) {
	in := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"ghost"},
	}

	out := NormalizeObjectSchema(in, false)
	assert.NotContains(t, out, "required")
}

func TestEnsureNonEmptyProperties(t *testing.T) {
	empty := map[string]interface{}{"type": "OBJECT", "required": []interface{}{}}
	out := EnsureNonEmptyProperties(empty, true)

	props := out["properties"].(map[string]interface{})
	placeholder, ok := props[PlaceholderProperty].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "STRING", placeholder["type"])
	assert.NotContains(t, out, "required")

	full := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
		},
	}
	out = EnsureNonEmptyProperties(full, false)
	props = out["properties"].(map[string]interface{})
	assert.NotContains(t, props, PlaceholderProperty)
	assert.Contains(t, props, "x")
}
