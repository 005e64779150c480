// Package rewrite implements the redirect and rewrite rule engine the
// routing layer applies to inbound request paths.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/watzon/waypost/internal/manifest"
)

// DecisionType classifies what the router should do with a matched request.
type DecisionType string

const (
	// DecisionRewrite proxies the request to the target path. The
	// client-visible URL is preserved.
	DecisionRewrite DecisionType = "rewrite"
	// DecisionRedirect sends a client redirect to the target location.
	DecisionRedirect DecisionType = "redirect"
	// DecisionCustom serves the target content with the rule's status
	// code (404 and 410 rules).
	DecisionCustom DecisionType = "custom"
)

// Request is the inbound request view the engine matches against.
type Request struct {
	// Path is the request URL path.
	Path string
	// Method is the HTTP verb.
	Method string
	// HasStaticAsset reports whether a deployed static asset exists at
	// Path. Rules without force are skipped when one does.
	HasStaticAsset bool
}

// Decision is the outcome of matching a request against the rule set.
type Decision struct {
	Type     DecisionType
	Location string
	Status   int
	Headers  map[string]string
	// Rule is the manifest rule that produced this decision.
	Rule *manifest.RedirectRule
}

type segment struct {
	literal string // lowercased literal, empty for placeholders
	param   string // placeholder name without the leading colon
}

type compiledRule struct {
	rule     manifest.RedirectRule
	segments []segment
	splat    bool
}

// RuleSet is an ordered, compiled set of redirect rules. First match wins.
type RuleSet struct {
	rules []compiledRule
}

// CompileRules compiles manifest redirect rules into a matchable rule set,
// preserving order.
func CompileRules(rules []manifest.RedirectRule) (*RuleSet, error) {
	rs := &RuleSet{rules: make([]compiledRule, 0, len(rules))}

	for i, r := range rules {
		cr, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("compiling redirect rule %d (%s): %w", i, r.From, err)
		}
		rs.rules = append(rs.rules, cr)
	}

	return rs, nil
}

func compile(r manifest.RedirectRule) (compiledRule, error) {
	cr := compiledRule{rule: r}

	pattern := strings.TrimPrefix(r.From, "/")
	if pattern == "" {
		return cr, nil
	}

	for _, seg := range strings.Split(pattern, "/") {
		switch {
		case seg == "*":
			cr.splat = true
		case strings.HasPrefix(seg, ":"):
			cr.segments = append(cr.segments, segment{param: seg[1:]})
		default:
			cr.segments = append(cr.segments, segment{literal: strings.ToLower(seg)})
		}
	}

	return cr, nil
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Match evaluates the request against the rule set. The first rule whose
// from-pattern and method set match wins. Returns false when no rule
// applies; fall-through behavior is the caller's concern.
func (rs *RuleSet) Match(req Request) (*Decision, bool) {
	pathSegments := splitPath(req.Path)

	for i := range rs.rules {
		cr := &rs.rules[i]

		if !cr.rule.AllowsMethod(req.Method) {
			continue
		}
		if req.HasStaticAsset && !cr.rule.Force {
			continue
		}

		params, splat, ok := cr.match(pathSegments)
		if !ok {
			continue
		}

		return decide(cr, params, splat), true
	}

	return nil, false
}

func (cr *compiledRule) match(pathSegments []string) (map[string]string, string, bool) {
	if len(pathSegments) < len(cr.segments) {
		return nil, "", false
	}
	if !cr.splat && len(pathSegments) != len(cr.segments) {
		return nil, "", false
	}

	var params map[string]string
	for i, seg := range cr.segments {
		if seg.param != "" {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.param] = pathSegments[i]
			continue
		}
		if strings.ToLower(pathSegments[i]) != seg.literal {
			return nil, "", false
		}
	}

	splat := ""
	if cr.splat {
		splat = strings.Join(pathSegments[len(cr.segments):], "/")
	}

	return params, splat, true
}

func decide(cr *compiledRule, params map[string]string, splat string) *Decision {
	d := &Decision{
		Location: substitute(cr.rule.To, params, splat),
		Status:   cr.rule.Status,
		Headers:  cr.rule.Headers,
		Rule:     &cr.rule,
	}

	switch {
	case cr.rule.IsRewrite():
		d.Type = DecisionRewrite
	case cr.rule.Status >= 300 && cr.rule.Status < 400:
		d.Type = DecisionRedirect
	default:
		d.Type = DecisionCustom
	}

	return d
}

// substitute replaces :placeholder and :splat references in the target.
func substitute(to string, params map[string]string, splat string) string {
	if !strings.Contains(to, ":") {
		return to
	}

	segments := strings.Split(to, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		if name == "splat" {
			segments[i] = splat
			continue
		}
		if val, ok := params[name]; ok {
			segments[i] = val
		}
	}

	return strings.Join(segments, "/")
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
