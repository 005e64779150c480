package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrManifestNotFound indicates no manifest file exists at the path.
	ErrManifestNotFound = errors.New("manifest file not found")
	// ErrInvalidManifest indicates the manifest failed validation.
	ErrInvalidManifest = errors.New("invalid manifest")
)

// Parse decodes and normalizes a deploy manifest from TOML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing manifest at line %d, column %d: %s", row, col, derr.Error())
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	normalize(&m)

	if err := Validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// ParseFile reads and parses a deploy manifest from disk.
func ParseFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// normalize applies defaults and canonical forms so that equivalent
// manifests compare equal after a parse round trip.
func normalize(m *Manifest) {
	for i := range m.Redirects {
		r := &m.Redirects[i]

		if r.Status == 0 {
			r.Status = StatusMovedPermanently
		}

		for j, method := range r.Methods {
			r.Methods[j] = strings.ToUpper(strings.TrimSpace(method))
		}

		r.From = normalizePath(r.From)
		if !strings.Contains(r.To, "://") {
			r.To = normalizePath(r.To)
		}
	}
}

// normalizePath strips a trailing slash from non-root paths. Matching is
// slash-insensitive, so "/api/" and "/api" declare the same pattern.
func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
