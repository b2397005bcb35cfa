package flowrate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "go.yaml.in/yaml/v3"
)

// LoadFile reads a YAML rate table. Unknown keys are rejected.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow rate file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML rate table.
func Parse(data []byte) (*Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var spec Spec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("flow rate file is empty")
		}
		return nil, fmt.Errorf("decode flow rate file: %w", err)
	}
	return New(spec)
}
