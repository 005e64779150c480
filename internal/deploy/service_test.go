package deploy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watzon/waypost/internal/database"
)

func newTestService(t *testing.T, manifestPath string) *Service {
	t.Helper()

	db, err := database.Open(database.Options{
		Path: filepath.Join(t.TempDir(), "deployments.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(db, manifestPath, "")
	require.NoError(t, svc.Init())
	return svc
}

func TestCheck_ValidProject(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)

	svc := NewService(nil, manifestPath, "")
	report, bundle, err := svc.Check()
	require.NoError(t, err)

	assert.True(t, report.Valid, "errors: %v", report.Errors)
	assert.Equal(t, 2, report.Rules)
	assert.Equal(t, 1, report.Functions)
	require.NotNil(t, bundle)
	assert.Len(t, bundle.Functions, 1)
}

func TestCheck_UnresolvedFunctionTarget(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)

	// Remove the only function; both rules now target a ghost.
	require.NoError(t, os.Remove(filepath.Join(dir, "netlify", "functions", "api.py")))

	svc := NewService(nil, manifestPath, "")
	report, _, err := svc.Check()
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "does not resolve to a deployed function")
}

func TestCheck_MissingFunctionsDirectory(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "netlify.toml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifest), 0o644))

	svc := NewService(nil, manifestPath, "")
	report, _, err := svc.Check()
	require.NoError(t, err)

	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "functions directory does not exist")
}

func TestCheck_ValidationErrorsReported(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "netlify.toml")
	bad := `
[[redirects]]
  from = "no-leading-slash"
  to = "/x"
  status = 999
`
	require.NoError(t, os.WriteFile(manifestPath, []byte(bad), 0o644))

	svc := NewService(nil, manifestPath, "")
	report, _, err := svc.Check()
	require.NoError(t, err)

	assert.False(t, report.Valid)
	assert.Len(t, report.Errors, 2)
}

func TestCheck_FunctionTargetWithRedirectStatusWarns(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)

	redirecting := strings.Replace(testManifest, "status = 200", "status = 302", 1)
	require.NoError(t, os.WriteFile(manifestPath, []byte(redirecting), 0o644))

	svc := NewService(nil, manifestPath, "")
	report, _, err := svc.Check()
	require.NoError(t, err)

	assert.True(t, report.Valid)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "redirects the client instead of proxying")
}

func TestRecord_And_NoChanges(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)
	svc := newTestService(t, manifestPath)

	d, err := svc.Record("first deploy", false)
	require.NoError(t, err)
	assert.Equal(t, "v1", d.Version)
	assert.Equal(t, StatusActive, d.Status)
	assert.NotEmpty(t, d.ManifestHash)
	assert.Equal(t, "first deploy", d.Description)

	// Identical content must not create a second record.
	_, err = svc.Record("again", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no changes")
}

func TestRecord_FailsOnInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)
	svc := newTestService(t, manifestPath)

	require.NoError(t, os.Remove(filepath.Join(dir, "netlify", "functions", "api.py")))

	_, err := svc.Record("broken", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy check failed")
}

func TestRollback_RestoresManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)
	svc := newTestService(t, manifestPath)

	_, err := svc.Record("v1 content", false)
	require.NoError(t, err)

	original, err := os.ReadFile(manifestPath)
	require.NoError(t, err)

	// Change the manifest and record a second deployment.
	updated := strings.Replace(testManifest, `"/api/status"`, `"/api/health"`, 1)
	require.NoError(t, os.WriteFile(manifestPath, []byte(updated), 0o644))

	d2, err := svc.Record("renamed status route", false)
	require.NoError(t, err)
	assert.Equal(t, "v2", d2.Version)

	restored, err := svc.Rollback("v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", restored.Version)

	onDisk, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, string(original), string(onDisk), "rollback restores the v1 manifest")

	current, err := svc.Store().Current()
	require.NoError(t, err)
	assert.Equal(t, "v1", current.Version)

	v2, err := svc.Store().Get("v2")
	require.NoError(t, err)
	assert.Equal(t, StatusRolledBack, v2.Status)
	assert.Equal(t, "v1", v2.RollbackTo)
}

func TestRollback_Errors(t *testing.T) {
	dir := t.TempDir()
	manifestPath, _ := writeProject(t, dir)
	svc := newTestService(t, manifestPath)

	_, err := svc.Rollback("v9")
	require.Error(t, err)

	_, err = svc.Record("only deploy", false)
	require.NoError(t, err)

	_, err = svc.Rollback("v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")
}
