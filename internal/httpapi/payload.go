package httpapi

import (
	"fmt"

	"github.com/noko0413/Railnode/pkg/types"
)

// sanitizePayload validates a decoded request body against the entity
// schema and returns only the declared fields. Reserved keys and unknown
// fields are dropped. Declared fields are type-checked. On update an
// explicit null passes through so the store layer can apply its unset
// semantics; on create (requireAll) nulls are dropped, every non-optional
// field must be present, and a null on one is a missing field.
func sanitizePayload(schema types.EntitySchema, payload map[string]any, requireAll bool) (map[string]any, error) {
	payload = types.StripReservedFields(payload)

	out := make(map[string]any, len(payload))
	for name, value := range payload {
		def, declared := schema.Field(name)
		if !declared {
			continue
		}
		if value == nil {
			if !requireAll {
				out[name] = nil
			}
			continue
		}
		if !typeMatches(def.Type, value) {
			return nil, fmt.Errorf("field %q must be a %s", name, def.Type)
		}
		out[name] = value
	}

	if requireAll {
		for _, def := range schema.Fields {
			if def.Optional {
				continue
			}
			if _, ok := out[def.Name]; !ok {
				return nil, fmt.Errorf("field %q is required", def.Name)
			}
		}
	}
	return out, nil
}

// typeMatches checks a decoded JSON value against the declared field type.
// encoding/json decodes every JSON number as float64.
func typeMatches(ft types.FieldType, value any) bool {
	switch ft {
	case types.FieldString:
		_, ok := value.(string)
		return ok
	case types.FieldNumber:
		_, ok := value.(float64)
		return ok
	case types.FieldBoolean:
		_, ok := value.(bool)
		return ok
	}
	return false
}
