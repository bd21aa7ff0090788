package tool

import "github.com/lingxi-album/backend/internal/model"

// JSONSchema renders d's parameters as a JSON-Schema object, suitable
// for a reasoning engine's tool-input schema, per spec.md §4.6's
// "typed parameters" description.
func JSONSchema(d model.ToolDescriptor) map[string]any {
	properties := make(map[string]any, len(d.Params))
	var required []string

	for _, p := range d.Params {
		properties[p.Name] = paramSchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func paramSchema(p model.ParamSpec) map[string]any {
	s := map[string]any{"type": string(p.Type)}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if p.Type == model.TypeArray && p.ItemType != "" {
		s["items"] = map[string]any{"type": string(p.ItemType)}
	}
	if p.Type == model.TypeObject && len(p.NestedSchema) > 0 {
		nestedProps := make(map[string]any, len(p.NestedSchema))
		for _, np := range p.NestedSchema {
			nestedProps[np.Name] = paramSchema(np)
		}
		s["properties"] = nestedProps
	}
	return s
}
