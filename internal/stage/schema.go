package stage

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schemas for the raw records the model returns, before they are turned
// into contract records. Records failing these checks are discarded and
// counted against the attempt budget.
var (
	useCaseSchema  = mustCompileSchema("use_case.json")
	policySchema   = mustCompileSchema("policy.json")
	testCaseSchema = mustCompileSchema("test_case.json")
	exampleSchema  = mustCompileSchema("example.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("stage: read schema %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("stage: add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("stage: compile schema %s: %v", name, err))
	}
	return schema
}

// checkRaw validates one raw model record against a schema.
func checkRaw(schema *jsonschema.Schema, raw json.RawMessage) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}
	return schema.Validate(value)
}
