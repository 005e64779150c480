// Package functions discovers deployable functions in a manifest's
// functions directory and resolves rewrite targets to them.
package functions

// Runtime identifies a function's language runtime.
type Runtime string

const (
	// RuntimeNode is the Node.js runtime.
	RuntimeNode Runtime = "node"
	// RuntimePython is the Python runtime.
	RuntimePython Runtime = "python"
	// RuntimeGo is the Go runtime.
	RuntimeGo Runtime = "go"
)

// versionHintKeys map runtimes to the build environment variable carrying
// the interpreter version for that runtime.
var versionHintKeys = map[Runtime]string{
	RuntimeNode:   "NODE_VERSION",
	RuntimePython: "PYTHON_VERSION",
	RuntimeGo:     "GO_VERSION",
}

// VersionHintKey returns the build environment key that declares the
// interpreter version for a runtime, or "" when the runtime has none.
func VersionHintKey(r Runtime) string {
	return versionHintKeys[r]
}

// Function is a discovered deployable function.
type Function struct {
	// Name is the function name, derived from the file or directory name.
	Name string `json:"name"`
	// Runtime is detected from the entry file extension unless a sidecar
	// manifest overrides it.
	Runtime Runtime `json:"runtime"`
	// Path is the absolute path to the entry file.
	Path string `json:"path"`
	// VersionHint is the interpreter version declared in the deploy
	// manifest's build environment, if any.
	VersionHint string `json:"version_hint,omitempty"`
	// Timeout overrides the platform default, in seconds (optional).
	Timeout int `json:"timeout,omitempty"`
	// Memory overrides the platform default allocation, in MB (optional).
	Memory int `json:"memory,omitempty"`
	// Env contains per-function environment variables.
	Env map[string]string `json:"env,omitempty"`
	// HasSidecar indicates a YAML sidecar manifest was found.
	HasSidecar bool `json:"has_sidecar"`
}
