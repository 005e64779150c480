package functions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var errNotAFunction = errors.New("not a function file")

// entryNames are the file basenames probed when a function is laid out as
// a directory rather than a single file.
var entryNames = []string{"index", "main", "handler", "app"}

// Sidecar is a per-function YAML manifest placed next to the entry file.
type Sidecar struct {
	Name    string            `yaml:"name"`
	Runtime string            `yaml:"runtime"`
	Timeout int               `yaml:"timeout"`
	Memory  int               `yaml:"memory"`
	Env     map[string]string `yaml:"env"`
}

// Registry holds the functions discovered in a functions directory.
type Registry struct {
	dir       string
	buildEnv  map[string]string
	functions map[string]*Function
	mu        sync.RWMutex
}

// NewRegistry creates a registry for the given functions directory. The
// build environment supplies interpreter version hints (PYTHON_VERSION and
// friends) from the deploy manifest.
func NewRegistry(dir string, buildEnv map[string]string) *Registry {
	return &Registry{
		dir:       dir,
		buildEnv:  buildEnv,
		functions: make(map[string]*Function),
	}
}

// Discover scans the functions directory. A missing directory is an error:
// the manifest declares it, so deploy-time validation must be able to rely
// on its existence.
func (r *Registry) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.functions = make(map[string]*Function)

	if _, err := os.Stat(r.dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("functions directory does not exist: %s", r.dir)
		}
		return fmt.Errorf("checking functions directory: %w", err)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading functions directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}

		var fn *Function
		if entry.IsDir() {
			fn, err = r.parseDir(name)
		} else {
			fn, err = r.parseFile(name)
		}
		if errors.Is(err, errNotAFunction) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("entry", name).Msg("Skipping function")
			continue
		}

		r.functions[fn.Name] = fn
		log.Debug().
			Str("name", fn.Name).
			Str("runtime", string(fn.Runtime)).
			Str("version_hint", fn.VersionHint).
			Msg("Discovered function")
	}

	log.Info().Int("count", len(r.functions)).Str("dir", r.dir).Msg("Functions discovered")
	return nil
}

// parseFile handles single-file functions like api.py.
func (r *Registry) parseFile(filename string) (*Function, error) {
	ext := filepath.Ext(filename)
	runtime := detectRuntime(ext)
	if runtime == "" {
		return nil, errNotAFunction
	}

	fn := &Function{
		Name:    strings.TrimSuffix(filename, ext),
		Runtime: runtime,
		Path:    filepath.Join(r.dir, filename),
	}

	if err := r.applySidecar(fn, filepath.Join(r.dir, fn.Name+".yaml")); err != nil {
		return nil, err
	}

	r.applyVersionHint(fn)
	return fn, nil
}

// parseDir handles directory functions like api/main.py.
func (r *Registry) parseDir(dirname string) (*Function, error) {
	funcDir := filepath.Join(r.dir, dirname)

	for _, base := range entryNames {
		matches, err := filepath.Glob(filepath.Join(funcDir, base+".*"))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			runtime := detectRuntime(filepath.Ext(m))
			if runtime == "" {
				continue
			}

			fn := &Function{
				Name:    dirname,
				Runtime: runtime,
				Path:    m,
			}
			if err := r.applySidecar(fn, filepath.Join(funcDir, "function.yaml")); err != nil {
				return nil, err
			}
			r.applyVersionHint(fn)
			return fn, nil
		}
	}

	return nil, errNotAFunction
}

// applySidecar loads an optional YAML sidecar manifest and applies its
// overrides.
func (r *Registry) applySidecar(fn *Function, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading sidecar manifest: %w", err)
	}

	var sc Sidecar
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("parsing sidecar manifest: %w", err)
	}

	if sc.Name != "" {
		fn.Name = sc.Name
	}
	if sc.Runtime != "" {
		fn.Runtime = Runtime(sc.Runtime)
	}
	if sc.Timeout > 0 {
		fn.Timeout = sc.Timeout
	}
	if sc.Memory > 0 {
		fn.Memory = sc.Memory
	}
	if sc.Env != nil {
		fn.Env = make(map[string]string, len(sc.Env))
		for k, v := range sc.Env {
			fn.Env[k] = os.ExpandEnv(v)
		}
	}

	fn.HasSidecar = true
	return nil
}

func (r *Registry) applyVersionHint(fn *Function) {
	if key := VersionHintKey(fn.Runtime); key != "" {
		fn.VersionHint = r.buildEnv[key]
	}
}

// detectRuntime maps an entry file extension to a runtime.
func detectRuntime(ext string) Runtime {
	switch ext {
	case ".js", ".mjs", ".cjs":
		return RuntimeNode
	case ".py":
		return RuntimePython
	case ".go":
		return RuntimeGo
	default:
		return ""
	}
}

// Get returns a discovered function by name.
func (r *Registry) Get(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.functions[name]
	return fn, ok
}

// List returns all discovered functions sorted by name.
func (r *Registry) List() []*Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Function, 0, len(r.functions))
	for _, fn := range r.functions {
		result = append(result, fn)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of discovered functions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// Dir returns the scanned functions directory.
func (r *Registry) Dir() string {
	return r.dir
}
