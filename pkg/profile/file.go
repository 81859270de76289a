package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TableEntry is one definition in a YAML profile table.
type TableEntry struct {
	Variant Variant        `yaml:"variant"`
	Profile *DeviceProfile `yaml:"profile"`
}

// DecodeTable reads a YAML sequence of table entries. Every entry goes through
// Table.Define, so a variant defined twice with different wiring is rejected, and
// every resulting profile is validated.
func DecodeTable(r io.Reader) (*Table, error) {
	var entries []TableEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse profile table: %w", err)
	}

	t := NewTable()
	for i, e := range entries {
		if err := t.Define(e.Variant, e.Profile); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ReadTableFile reads a profile table from a YAML file.
func ReadTableFile(filename string) (*Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile table: %w", err)
	}
	return DecodeTable(bytes.NewReader(data))
}

// ReadFile reads a single profile from a YAML file and validates it. Unknown
// keys are rejected the same way DecodeTable rejects them.
func ReadFile(filename string) (*DeviceProfile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p DeviceProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse profile: %s is empty", filename)
		}
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", filename, err)
	}
	return &p, nil
}

// WriteFile writes the profile to a YAML file.
func (p *DeviceProfile) WriteFile(filename string) error {
	data, err := p.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// MarshalYAMLBytes encodes the profile as YAML.
func (p *DeviceProfile) MarshalYAMLBytes() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return data, nil
}
