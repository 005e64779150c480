package cli

import (
	"path/filepath"

	"github.com/watzon/waypost/internal/functions"
	"github.com/watzon/waypost/internal/manifest"
)

// loadManifest parses the configured deploy manifest.
func loadManifest() (*manifest.Manifest, error) {
	return manifest.ParseFile(cfg.Manifest.Path)
}

// functionsDir resolves the manifest's functions directory relative to the
// manifest file.
func functionsDir(m *manifest.Manifest) string {
	if m.Build.Functions == "" {
		return ""
	}
	if filepath.IsAbs(m.Build.Functions) {
		return m.Build.Functions
	}
	return filepath.Join(filepath.Dir(cfg.Manifest.Path), m.Build.Functions)
}

// discoverFunctions builds and populates a registry for the manifest's
// functions directory. Returns nil when the manifest declares none.
func discoverFunctions(m *manifest.Manifest) (*functions.Registry, error) {
	dir := functionsDir(m)
	if dir == "" {
		return nil, nil //nolint:nilnil // manifest declares no functions directory
	}

	registry := functions.NewRegistry(dir, m.Build.Environment)
	if err := registry.Discover(); err != nil {
		return nil, err
	}
	return registry, nil
}
