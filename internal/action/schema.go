package action

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// actionSchemaJSON is the fixed JSON Schema that Parse checks a payload
// against after structural decoding has rejected it, grounded on the registry
// tool payload validation in goa-ai's registry/service.go. It is deliberately
// permissive (most fields optional) since Parse's job is to tolerate model
// sloppiness, not reject it; schema failures are recorded for diagnostics in
// the invalid action's reason, never used to hard-fail a reply that decode()
// can still make sense of.
const actionSchemaJSON = `{
  "type": "object",
  "properties": {
    "type": {"type": "string", "enum": ["tool_call", "final"]},
    "tool": {"type": "string"},
    "input": {"type": "object"},
    "answer": {"type": "string"},
    "used_citations": {"type": "array"},
    "citations": {"type": "array"},
    "insufficiencies": {"type": "array"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(actionSchemaJSON), &doc); err != nil {
			schemaErr = fmt.Errorf("action: unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("action.json", doc); err != nil {
			schemaErr = fmt.Errorf("action: add schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile("action.json")
	})
	return schema, schemaErr
}

// schemaWarning validates raw against the fixed action schema and returns a
// human-readable description of any violation, or "" if raw conforms (or the
// schema itself failed to compile, which should never happen in practice).
// It never blocks decoding: Parse calls it only once decode() has returned an
// invalid action, and appends any violation to that action's reason.
func schemaWarning(raw map[string]any) string {
	s, err := compiledSchema()
	if err != nil {
		return ""
	}
	if err := s.Validate(raw); err != nil {
		return err.Error()
	}
	return ""
}
