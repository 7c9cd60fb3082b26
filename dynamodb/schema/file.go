package schema

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the conventional name of the serialized schema.
const FileName = "schema_dynamodb.yaml"

const header = "# Generated by ddb gen. DO NOT EDIT.\n\n"

// Marshal encodes the schema as YAML with the generated-file header.
func Marshal(s Schema) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return buf.Bytes(), nil
}

// Write marshals the schema to path.
func Write(path string, s Schema) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing schema file: %w", err)
	}
	return nil
}

// Load reads a schema previously written with Write.
func Load(path string) (Schema, error) {
	var s Schema
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("reading schema file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	return s, nil
}
