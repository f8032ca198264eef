package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var inbound = map[string]*jsonschema.Schema{
	TypeHello: mustCompile("hello.schema.json"),
	TypeInput: mustCompile("input.schema.json"),
}

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(raw))
}

// Validate checks a raw client message against the schema for its type.
func Validate(msgType string, raw []byte) error {
	s, ok := inbound[msgType]
	if !ok {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}
