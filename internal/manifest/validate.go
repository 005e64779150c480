package manifest

import (
	"fmt"
	"path"
	"strings"
)

// ValidationError describes a single invalid manifest field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found in a manifest.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("manifest validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

var validStatuses = map[int]bool{
	StatusRewrite:           true,
	StatusMovedPermanently:  true,
	StatusFound:             true,
	StatusTemporaryRedirect: true,
	StatusPermanentRedirect: true,
	StatusNotFound:          true,
	StatusGone:              true,
}

var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

// Validate checks a parsed manifest for structural problems.
func Validate(m *Manifest) error {
	var errs ValidationErrors

	errs = append(errs, validateBuild(&m.Build)...)
	for i := range m.Redirects {
		errs = append(errs, validateRedirect(i, &m.Redirects[i])...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBuild(b *BuildConfig) ValidationErrors {
	var errs ValidationErrors

	if b.Functions != "" {
		if path.IsAbs(b.Functions) {
			errs = append(errs, ValidationError{
				Field:   "build.functions",
				Message: "must be relative to the manifest",
			})
		}
		if containsDotDot(b.Functions) {
			errs = append(errs, ValidationError{
				Field:   "build.functions",
				Message: "path traversal (..) not allowed",
			})
		}
	}

	if b.Publish != "" && containsDotDot(b.Publish) {
		errs = append(errs, ValidationError{
			Field:   "build.publish",
			Message: "path traversal (..) not allowed",
		})
	}

	return errs
}

func validateRedirect(idx int, r *RedirectRule) ValidationErrors {
	var errs ValidationErrors
	field := func(name string) string {
		return fmt.Sprintf("redirects[%d].%s", idx, name)
	}

	switch {
	case r.From == "":
		errs = append(errs, ValidationError{
			Field:   field("from"),
			Message: "required",
		})
	case !strings.HasPrefix(r.From, "/"):
		errs = append(errs, ValidationError{
			Field:   field("from"),
			Message: "must start with /",
		})
	default:
		errs = append(errs, validatePattern(field("from"), r.From)...)
	}

	switch {
	case r.To == "":
		errs = append(errs, ValidationError{
			Field:   field("to"),
			Message: "required",
		})
	case !strings.HasPrefix(r.To, "/") && !strings.Contains(r.To, "://"):
		errs = append(errs, ValidationError{
			Field:   field("to"),
			Message: "must start with / or be an absolute URL",
		})
	}

	if !validStatuses[r.Status] {
		errs = append(errs, ValidationError{
			Field:   field("status"),
			Message: "must be one of: 200, 301, 302, 307, 308, 404, 410",
		})
	}

	for _, m := range r.Methods {
		if !validMethods[m] {
			errs = append(errs, ValidationError{
				Field:   field("methods"),
				Message: fmt.Sprintf("unknown HTTP method %q", m),
			})
		}
	}

	// :splat in the target needs a splat in the source to substitute from.
	if strings.Contains(r.To, ":splat") && !strings.HasSuffix(r.From, "/*") {
		errs = append(errs, ValidationError{
			Field:   field("to"),
			Message: ":splat requires a trailing /* in from",
		})
	}

	return errs
}

// validatePattern checks placeholder and splat segments in a from-path.
func validatePattern(field, pattern string) ValidationErrors {
	var errs ValidationErrors

	segments := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	for i, seg := range segments {
		if seg == "*" && i != len(segments)-1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "splat (*) is only allowed as the last segment",
			})
		}
		if strings.HasPrefix(seg, ":") && len(seg) == 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "placeholder segments need a name after :",
			})
		}
	}

	return errs
}

func containsDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
