package formula

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func descriptorSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("descriptor.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// ParseYAML decodes a YAML or JSON descriptor after checking it against the
// descriptor schema.
func ParseYAML(data []byte) (Fields, error) {
	if len(data) > MaxDescriptorSize {
		return Fields{}, &ParseError{
			Message: "descriptor too large",
			Detail:  fmt.Sprintf("%d bytes exceeds limit of %d", len(data), MaxDescriptorSize),
		}
	}

	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Fields{}, &ParseError{Message: "YAML syntax error", Detail: err.Error()}
	}

	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Fields{}, &ParseError{Message: "descriptor is not JSON-compatible", Detail: err.Error()}
	}
	var jsonDoc interface{}
	if err := json.Unmarshal(raw, &jsonDoc); err != nil {
		return Fields{}, &ParseError{Message: "descriptor is not JSON-compatible", Detail: err.Error()}
	}

	sch, err := descriptorSchema()
	if err != nil {
		return Fields{}, fmt.Errorf("compile descriptor schema: %w", err)
	}
	if err := sch.Validate(jsonDoc); err != nil {
		return Fields{}, &ParseError{Message: "descriptor does not match schema", Detail: err.Error()}
	}

	var f Fields
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fields{}, &ParseError{Message: "decode descriptor", Detail: err.Error()}
	}

	return f, nil
}

// MarshalYAML renders d in the YAML descriptor format.
func (d Descriptor) MarshalYAML() (interface{}, error) {
	return d.Fields(), nil
}
