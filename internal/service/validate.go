package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/verify_standalone.schema.json
var standaloneSchemaJSON string

//go:embed schemas/verify_embed.schema.json
var embedSchemaJSON string

var (
	standaloneSchema = mustCompile("verify_standalone.schema.json", standaloneSchemaJSON)
	embedSchema      = mustCompile("verify_embed.schema.json", embedSchemaJSON)
)

func mustCompile(id, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(id, strings.NewReader(src)); err != nil {
		panic("schema resource: " + err.Error())
	}
	return c.MustCompile(id)
}

// decodeBody parses and shape-checks a request body against its JSON
// Schema, then unmarshals into dst. Field presence and business floors
// are checked by the handlers; the schema guards types and structure.
func decodeBody(body []byte, schema *jsonschema.Schema, dst any) bool {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return false
	}
	if err := schema.Validate(generic); err != nil {
		return false
	}
	return json.Unmarshal(body, dst) == nil
}
