package manifest

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Encode serializes a manifest back to TOML. Parsing the output yields an
// equivalent manifest.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// WriteFile serializes a manifest to disk.
func (m *Manifest) WriteFile(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Format parses raw manifest TOML and re-serializes it in canonical form.
func Format(data []byte) ([]byte, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return m.Encode()
}
