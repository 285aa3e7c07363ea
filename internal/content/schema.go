package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Per-entry schemas. Entries that fail are skipped; the rest of the
// document still loads. Extra keys (comments, notes) are allowed.

const intList = `{"type": "array", "items": {"type": "integer"}}`

const statChanges = `{"type": ["array", "object", "null"]}`

var schemaSources = map[string]string{
	"actions": `{
		"type": "object",
		"required": ["id", "display_name", "type"],
		"properties": {
			"id": {"type": "integer", "minimum": 0},
			"display_name": {"type": "string", "minLength": 1},
			"type": {"type": "array", "items": {"type": "string"}},
			"items": ` + intList + `,
			"dependent_inventory_ids": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id"],
					"properties": {
						"id": {"type": "integer"},
						"quantity": {"type": "integer", "minimum": 1}
					}
				}
			},
			"ending_id_hints": ` + intList + `,
			"success_chance": {"type": "number", "minimum": 0, "maximum": 1},
			"message_success": {"type": "string"},
			"message_failure": {"type": "string"},
			"stat_changes": ` + statChanges + `,
			"stat_changes_regardless": ` + statChanges + `,
			"stat_changes_on_success": ` + statChanges + `,
			"stat_changes_on_failure": ` + statChanges + `
		}
	}`,
	"events": `{
		"type": "object",
		"required": ["id", "actions", "mile"],
		"properties": {
			"id": {"type": "integer", "minimum": 0},
			"actions": ` + intList + `,
			"description": {"type": "string"},
			"display_name": {"type": "string"},
			"ending_id_hints": ` + intList + `,
			"mile": {"type": "integer", "minimum": 0}
		}
	}`,
	"issues": `{
		"type": "object",
		"required": ["id", "type", "actions"],
		"properties": {
			"id": {"type": "integer", "minimum": 0},
			"type": {"enum": ["HEALTH", "MECHANICAL"]},
			"actions": ` + intList + `,
			"dependent_actions": ` + intList + `,
			"dependent_inventory": ` + intList + `,
			"description": {"type": "string"},
			"display_name": {"type": "string"},
			"image_url": {"type": "string"},
			"ending_id_hints": ` + intList + `,
			"stat_changes": ` + statChanges + `
		}
	}`,
	"items": `{
		"type": "object",
		"required": ["id", "display_name", "cost"],
		"properties": {
			"id": {"type": "integer", "minimum": 0},
			"category": {"enum": ["BIKE", "MISC"]},
			"cost": {"type": "integer", "minimum": 0},
			"display_name": {"type": "string", "minLength": 1},
			"image_url": {"type": "string"},
			"stat_changes": ` + statChanges + `
		}
	}`,
	"endings": `{
		"type": "object",
		"required": ["id", "display_name"],
		"properties": {
			"id": {"type": "integer", "minimum": 0},
			"display_name": {"type": "string"},
			"description": {"type": "string"},
			"image_tag": {"type": "string"}
		}
	}`,
}

var compiledSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(schemaSources))
	for kind, src := range schemaSources {
		s, err := jsonschema.CompileString(kind+".schema.json", src)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		out[kind] = s
	}
	return out, nil
})

// validateEntry checks one document entry against the schema for kind.
func validateEntry(kind string, node *yaml.Node) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	s, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("no schema for %q", kind)
	}
	v, err := jsonValue(node)
	if err != nil {
		return err
	}
	return s.Validate(v)
}

// jsonValue converts a YAML node into the generic JSON shape the schema
// validator expects (map[string]any, []any, json.Number, ...).
func jsonValue(node *yaml.Node) (any, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("entry is not representable as JSON: %w", err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
