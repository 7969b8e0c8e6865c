package provider

import (
	"strings"
)

// schemaKeys are the schema fields both providers accept. Everything
// else (default, additionalProperties, $schema, ...) is stripped.
var schemaKeys = map[string]bool{
	"type":        true,
	"format":      true,
	"description": true,
	"nullable":    true,
	"enum":        true,
	"properties":  true,
	"required":    true,
	"items":       true,
}

// SanitizeSchema deep-copies schema keeping only supported fields.
// uppercaseType rewrites primitive type tokens to upper case (Gemini
// expects "STRING"/"OBJECT", Claude lower case).
func SanitizeSchema(schema interface{}, uppercaseType bool) interface{} {
	switch v := schema.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			switch {
			case k == "properties":
				props, ok := val.(map[string]interface{})
				if !ok {
					continue
				}
				cleaned := make(map[string]interface{}, len(props))
				for name, sub := range props {
					cleaned[name] = SanitizeSchema(sub, uppercaseType)
				}
				out[k] = cleaned
			case k == "type" && uppercaseType:
				if s, ok := val.(string); ok {
					out[k] = strings.ToUpper(s)
				}
			case schemaKeys[k]:
				out[k] = SanitizeSchema(val, uppercaseType)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, SanitizeSchema(item, uppercaseType))
		}
		return out
	default:
		return schema
	}
}

// NormalizeObjectSchema sanitizes a tool input schema and enforces the
// consistency rules shared by both providers:
//   - required entries without a matching property are dropped;
//   - an empty required list is removed;
//   - a missing type defaults to object.
func NormalizeObjectSchema(schema map[string]interface{}, uppercaseType bool) map[string]interface{} {
	cleaned, _ := SanitizeSchema(schema, uppercaseType).(map[string]interface{})
	if cleaned == nil {
		cleaned = map[string]interface{}{}
	}

	if _, ok := cleaned["type"]; !ok {
		if uppercaseType {
			cleaned["type"] = "OBJECT"
		} else {
			cleaned["type"] = "object"
		}
	}

	props, _ := cleaned["properties"].(map[string]interface{})

	if rawReq, ok := cleaned["required"]; ok {
		var kept []interface{}
		if reqList, ok := rawReq.([]interface{}); ok {
			for _, r := range reqList {
				name, _ := r.(string)
				if name == "" {
					continue
				}
				if _, exists := props[name]; exists {
					kept = append(kept, name)
				}
			}
		}
		if len(kept) == 0 {
			delete(cleaned, "required")
		} else {
			cleaned["required"] = kept
		}
	}

	return cleaned
}

// PlaceholderProperty is injected for providers that reject tools with
// an empty parameter object.
const PlaceholderProperty = "_placeholder"

// EnsureNonEmptyProperties injects a placeholder string property when
// the schema declares no parameters.
func EnsureNonEmptyProperties(schema map[string]interface{}, uppercaseType bool) map[string]interface{} {
	props, _ := schema["properties"].(map[string]interface{})
	if len(props) > 0 {
		return schema
	}

	typeToken := "string"
	if uppercaseType {
		typeToken = "STRING"
	}
	schema["properties"] = map[string]interface{}{
		PlaceholderProperty: map[string]interface{}{
			"type":        typeToken,
			"description": "Unused placeholder parameter, pass nothing or any value.",
		},
	}
	delete(schema, "required")
	return schema
}
