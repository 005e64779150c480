package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/watzon/waypost/internal/functions"
)

const testManifest = `
[build]
  functions = "netlify/functions"

[build.environment]
  PYTHON_VERSION = "3.9"

[[redirects]]
  from = "/api/calculate"
  to = "/.netlify/functions/api"
  status = 200
  force = true
  methods = ["POST"]

[[redirects]]
  from = "/api/status"
  to = "/.netlify/functions/api"
  status = 200
  force = true
  methods = ["GET"]
`

// writeProject lays out a manifest and functions directory in dir and
// returns the manifest path and a discovered registry.
func writeProject(t *testing.T, dir string) (string, *functions.Registry) {
	t.Helper()

	manifestPath := filepath.Join(dir, "netlify.toml")
	if err := os.WriteFile(manifestPath, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	fnDir := filepath.Join(dir, "netlify", "functions")
	if err := os.MkdirAll(fnDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fnDir, "api.py"), []byte("def handler(): pass"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := functions.NewRegistry(fnDir, map[string]string{"PYTHON_VERSION": "3.9"})
	if err := registry.Discover(); err != nil {
		t.Fatal(err)
	}

	return manifestPath, registry
}

func TestCreateBundle(t *testing.T) {
	dir := t.TempDir()
	manifestPath, registry := writeProject(t, dir)

	bundle, err := NewBundler(manifestPath, registry).CreateBundle()
	if err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}

	if bundle.ManifestHash == "" {
		t.Error("expected a manifest hash")
	}
	if len(bundle.Functions) != 1 {
		t.Fatalf("expected 1 function in bundle, got %d", len(bundle.Functions))
	}
	if bundle.Functions[0].Name != "api" || bundle.Functions[0].Runtime != "python" {
		t.Errorf("unexpected function snapshot: %+v", bundle.Functions[0])
	}
	if bundle.FunctionsHash == "" {
		t.Error("expected a combined functions hash")
	}
	if bundle.Manifest.Build.Functions != "netlify/functions" {
		t.Errorf("unexpected parsed manifest: %+v", bundle.Manifest.Build)
	}
}

func TestCreateBundle_Deterministic(t *testing.T) {
	dir := t.TempDir()
	manifestPath, registry := writeProject(t, dir)
	bundler := NewBundler(manifestPath, registry)

	a, err := bundler.CreateBundle()
	if err != nil {
		t.Fatal(err)
	}
	b, err := bundler.CreateBundle()
	if err != nil {
		t.Fatal(err)
	}

	if a.ManifestHash != b.ManifestHash || a.FunctionsHash != b.FunctionsHash {
		t.Error("expected identical inputs to hash identically")
	}
}

func TestDiffFunctions(t *testing.T) {
	previous := []*FunctionInfo{
		{Name: "api", Runtime: "python", Hash: "aaa"},
		{Name: "legacy", Runtime: "node", Hash: "bbb"},
	}
	local := []*FunctionInfo{
		{Name: "api", Runtime: "python", Hash: "ccc"},
		{Name: "fresh", Runtime: "go", Hash: "ddd"},
	}

	changes := DiffFunctions(local, previous)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}

	byName := make(map[string]*FunctionChange)
	for _, c := range changes {
		byName[c.Name] = c
	}

	if c := byName["api"]; c == nil || c.Type != FunctionModify || !c.Safe {
		t.Errorf("expected safe modify for api, got %+v", c)
	}
	if c := byName["fresh"]; c == nil || c.Type != FunctionAdd || !c.Safe {
		t.Errorf("expected safe add for fresh, got %+v", c)
	}
	if c := byName["legacy"]; c == nil || c.Type != FunctionRemove || c.Safe {
		t.Errorf("expected unsafe remove for legacy, got %+v", c)
	}
}

func TestSerializeFunctions_RoundTrip(t *testing.T) {
	infos := []*FunctionInfo{{Name: "api", Runtime: "python", Hash: "abc", Size: 19}}

	data, err := SerializeFunctions(infos)
	if err != nil {
		t.Fatal(err)
	}

	restored, err := DeserializeFunctions(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 1 || restored[0].Name != "api" || restored[0].Size != 19 {
		t.Errorf("round trip lost data: %+v", restored)
	}

	empty, err := SerializeFunctions(nil)
	if err != nil || empty != "[]" {
		t.Errorf("expected empty snapshot to serialize to [], got %q (%v)", empty, err)
	}
}
