// Package manifest provides the deploy manifest data model and TOML codec.
package manifest

import "strings"

// Known redirect status codes and their semantics.
const (
	// StatusRewrite proxies the request to the target path. The client keeps
	// the original URL.
	StatusRewrite = 200
	// StatusMovedPermanently is the default for rules with no explicit status.
	StatusMovedPermanently = 301
	// StatusFound is a temporary redirect.
	StatusFound = 302
	// StatusTemporaryRedirect preserves the request method across the redirect.
	StatusTemporaryRedirect = 307
	// StatusPermanentRedirect preserves the request method permanently.
	StatusPermanentRedirect = 308
	// StatusNotFound serves the target as a custom 404 page.
	StatusNotFound = 404
	// StatusGone marks the path as permanently removed.
	StatusGone = 410
)

// Manifest is the root of a deploy manifest file.
type Manifest struct {
	Build     BuildConfig    `toml:"build"`
	Redirects []RedirectRule `toml:"redirects,omitempty"`
}

// BuildConfig holds build settings for a deployment.
type BuildConfig struct {
	// Functions is the directory scanned for deployable functions,
	// relative to the manifest.
	Functions string `toml:"functions,omitempty"`

	// Publish is the directory of static assets to serve.
	Publish string `toml:"publish,omitempty"`

	// Command is the build command to run before deploy.
	Command string `toml:"command,omitempty"`

	// Environment holds build-time environment variables. Interpreter
	// version hints (PYTHON_VERSION, NODE_VERSION, GO_VERSION) live here.
	Environment map[string]string `toml:"environment,omitempty"`
}

// RedirectRule maps an inbound request pattern to a target path.
type RedirectRule struct {
	// From is the public URL path pattern. Segments may be literals,
	// ":placeholder" captures, or a trailing "*" splat.
	From string `toml:"from"`

	// To is the internal target. ":placeholder" and ":splat" references
	// are substituted from the matched From pattern.
	To string `toml:"to"`

	// Status selects the rule semantics: 200 rewrites (proxies) the
	// request, 3xx issues a client redirect. Defaults to 301.
	Status int `toml:"status,omitempty"`

	// Force applies the rule even when a static asset exists at the path.
	Force bool `toml:"force,omitempty"`

	// Methods restricts the rule to a set of HTTP verbs. Empty means all.
	Methods []string `toml:"methods,omitempty"`

	// Headers are added to the proxied request for rewrite rules.
	Headers map[string]string `toml:"headers,omitempty"`
}

// IsRewrite reports whether the rule proxies instead of redirecting.
func (r *RedirectRule) IsRewrite() bool {
	return r.Status == StatusRewrite
}

// AllowsMethod reports whether the rule applies to the given HTTP method.
// An empty method set matches every method.
func (r *RedirectRule) AllowsMethod(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	method = strings.ToUpper(method)
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// EnvironmentHint returns a build environment value by key, such as
// PYTHON_VERSION, or "" when unset.
func (b *BuildConfig) EnvironmentHint(key string) string {
	if b.Environment == nil {
		return ""
	}
	return b.Environment[key]
}
