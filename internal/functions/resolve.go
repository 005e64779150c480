package functions

import "strings"

// DefaultTargetPrefix is the internal path prefix that rewrite targets use
// to address deployed functions.
const DefaultTargetPrefix = "/.netlify/functions/"

// Resolver maps rewrite target paths to discovered functions.
type Resolver struct {
	registry *Registry
	prefix   string
}

// NewResolver creates a resolver for the given registry. An empty prefix
// selects DefaultTargetPrefix.
func NewResolver(registry *Registry, prefix string) *Resolver {
	if prefix == "" {
		prefix = DefaultTargetPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Resolver{registry: registry, prefix: prefix}
}

// Prefix returns the function target prefix in use.
func (r *Resolver) Prefix() string {
	return r.prefix
}

// IsFunctionTarget reports whether a rewrite target addresses a function.
func (r *Resolver) IsFunctionTarget(target string) bool {
	return strings.HasPrefix(target, r.prefix)
}

// FunctionName extracts the function name from a target path. Anything
// after the name (sub-path forwarded to the function) is ignored.
func (r *Resolver) FunctionName(target string) (string, bool) {
	if !r.IsFunctionTarget(target) {
		return "", false
	}
	rest := strings.TrimPrefix(target, r.prefix)
	name, _, _ := strings.Cut(rest, "/")
	if name == "" {
		return "", false
	}
	return name, true
}

// Resolve returns the discovered function a target addresses.
func (r *Resolver) Resolve(target string) (*Function, bool) {
	name, ok := r.FunctionName(target)
	if !ok {
		return nil, false
	}
	return r.registry.Get(name)
}
