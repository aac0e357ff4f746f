package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/event.schema.json
var schemaJSON []byte

//go:embed schema/full.schema.json
var fullSchemaJSON []byte

// Schema returns the embedded JSON schema describing EventSummary.
func Schema() []byte {
	return schemaJSON
}

// FullSchema returns the embedded JSON schema describing FullEvent.
func FullSchema() []byte {
	return fullSchemaJSON
}

func compileSchema(url string, data []byte) func() (*jsonschema.Schema, error) {
	return sync.OnceValues(func() (*jsonschema.Schema, error) {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema resource: %w", err)
		}
		return compiler.Compile(url)
	})
}

var (
	summarySchema = compileSchema("event.schema.json", schemaJSON)
	fullSchema    = compileSchema("full.schema.json", fullSchemaJSON)
)

// ValidateJSON checks a JSON document against the event summary schema.
func ValidateJSON(data []byte) error {
	return validate(summarySchema, data)
}

// ValidateFullJSON checks a JSON document against the full event schema.
func ValidateFullJSON(data []byte) error {
	return validate(fullSchema, data)
}

func validate(compiled func() (*jsonschema.Schema, error), data []byte) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
