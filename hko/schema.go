package hko

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// InputSchema reflects a request struct into the JSON schema advertised to
// callers. The "$schema" marker is dropped since MCP clients expect a bare
// object schema.
func InputSchema(req any) (map[string]any, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(req)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("hko: encode schema for %T: %w", req, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("hko: decode schema for %T: %w", req, err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}

func mustSchema(req any) map[string]any {
	schema, err := InputSchema(req)
	if err != nil {
		panic(err)
	}
	return schema
}
