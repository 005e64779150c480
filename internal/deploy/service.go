package deploy

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/watzon/waypost/internal/functions"
	"github.com/watzon/waypost/internal/manifest"
	"github.com/watzon/waypost/internal/rewrite"
)

// Service ties the manifest, the functions registry, and the deployment
// store together for deploy-time operations.
type Service struct {
	store        *Store
	manifestPath string
	targetPrefix string
}

// NewService creates a deployment service. The store may be nil when only
// Check is used.
func NewService(db *sql.DB, manifestPath, targetPrefix string) *Service {
	var store *Store
	if db != nil {
		store = NewStore(db)
	}
	return &Service{
		store:        store,
		manifestPath: manifestPath,
		targetPrefix: targetPrefix,
	}
}

// Store returns the deployment store, or nil when no database was given.
func (s *Service) Store() *Store {
	return s.store
}

// Init creates the deployment store tables.
func (s *Service) Init() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Init(); err != nil {
		return fmt.Errorf("initializing deployment store: %w", err)
	}
	return nil
}

// Check performs the deploy-time validation the platform runs before a
// deployment goes live: the manifest must parse and validate, its functions
// directory must exist, its redirect rules must compile, and every rule
// targeting the functions prefix must resolve to a discovered function.
func (s *Service) Check() (*Report, *Bundle, error) {
	report := &Report{}

	m, err := manifest.ParseFile(s.manifestPath)
	if err != nil {
		// Validation errors go into the report; anything else (missing
		// file, TOML syntax) is fatal.
		var verrs manifest.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				report.Errors = append(report.Errors, ve.Error())
			}
			return report, nil, nil
		}
		return nil, nil, err
	}
	report.Rules = len(m.Redirects)

	if _, err := rewrite.CompileRules(m.Redirects); err != nil {
		report.Errors = append(report.Errors, err.Error())
	}

	registry, err := s.discover(m)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report, nil, nil
	}

	var bundle *Bundle
	if registry != nil {
		report.Functions = registry.Count()
		s.checkTargets(m, registry, report)

		bundler := NewBundler(s.manifestPath, registry)
		bundle, err = bundler.CreateBundle()
		if err != nil {
			return nil, nil, err
		}
	}

	report.Valid = len(report.Errors) == 0
	return report, bundle, nil
}

func (s *Service) discover(m *manifest.Manifest) (*functions.Registry, error) {
	if m.Build.Functions == "" {
		return nil, nil //nolint:nilnil // no functions directory declared
	}

	dir := m.Build.Functions
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(s.manifestPath), dir)
	}

	registry := functions.NewRegistry(dir, m.Build.Environment)
	if err := registry.Discover(); err != nil {
		return nil, err
	}
	return registry, nil
}

// checkTargets verifies every function-addressed rewrite target resolves to
// a deployed function.
func (s *Service) checkTargets(m *manifest.Manifest, registry *functions.Registry, report *Report) {
	resolver := functions.NewResolver(registry, s.targetPrefix)

	for i := range m.Redirects {
		r := &m.Redirects[i]
		if !resolver.IsFunctionTarget(r.To) {
			continue
		}
		if _, ok := resolver.Resolve(r.To); !ok {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"redirects[%d]: target %s does not resolve to a deployed function", i, r.To))
			continue
		}
		if !r.IsRewrite() {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"redirects[%d]: function target with status %d redirects the client instead of proxying", i, r.Status))
		}
	}
}

// Record validates the current manifest and writes an immutable deployment
// record for it. Unsafe changes (function removals still referenced by
// rules surface as errors in Check) block the record unless force is set.
func (s *Service) Record(description string, force bool) (*Deployment, error) {
	if s.store == nil {
		return nil, fmt.Errorf("deployment store not configured")
	}

	report, bundle, err := s.Check()
	if err != nil {
		return nil, err
	}
	if !report.Valid && !force {
		return nil, fmt.Errorf("deploy check failed: %d error(s); use --force to record anyway", len(report.Errors))
	}
	if bundle == nil {
		return nil, fmt.Errorf("nothing to record: manifest declares no functions directory")
	}

	current, err := s.store.Current()
	if err != nil {
		return nil, fmt.Errorf("getting current deployment: %w", err)
	}
	if current != nil &&
		current.ManifestHash == bundle.ManifestHash &&
		current.FunctionsHash == bundle.FunctionsHash {
		return nil, fmt.Errorf("no changes since deployment %s", current.Version)
	}

	if current != nil {
		prev, _ := DeserializeFunctions(current.FunctionsSnapshot)
		for _, change := range DiffFunctions(bundle.Functions, prev) {
			if !change.Safe {
				log.Warn().Str("function", change.Name).Msg(change.Reason)
			}
		}
	}

	version, err := s.store.NextVersion()
	if err != nil {
		return nil, err
	}

	snapshot, err := SerializeFunctions(bundle.Functions)
	if err != nil {
		return nil, err
	}

	d := &Deployment{
		Version:           version,
		ManifestHash:      bundle.ManifestHash,
		FunctionsHash:     bundle.FunctionsHash,
		ManifestSnapshot:  bundle.ManifestRaw,
		FunctionsSnapshot: snapshot,
		Status:            StatusActive,
		Description:       description,
	}
	if err := s.store.Create(d); err != nil {
		return nil, err
	}

	log.Info().
		Str("version", version).
		Str("manifest_hash", shortHash(bundle.ManifestHash)).
		Int("functions", len(bundle.Functions)).
		Msg("Deployment recorded")

	return d, nil
}

// Rollback restores a previous deployment's manifest snapshot to disk and
// marks it active again.
func (s *Service) Rollback(version string) (*Deployment, error) {
	if s.store == nil {
		return nil, fmt.Errorf("deployment store not configured")
	}

	target, err := s.store.Get(version)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("deployment %s not found", version)
	}

	current, err := s.store.Current()
	if err != nil {
		return nil, err
	}
	if current != nil && current.Version == version {
		return nil, fmt.Errorf("deployment %s is already active", version)
	}

	if err := os.WriteFile(s.manifestPath, []byte(target.ManifestSnapshot), 0o644); err != nil {
		return nil, fmt.Errorf("restoring manifest snapshot: %w", err)
	}

	if current != nil {
		if err := s.store.SetStatus(current.Version, StatusRolledBack, version); err != nil {
			return nil, err
		}
	}
	if err := s.store.SetStatus(version, StatusActive, ""); err != nil {
		return nil, err
	}

	log.Info().Str("version", version).Msg("Rolled back")
	return target, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
