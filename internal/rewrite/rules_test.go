package rewrite

import (
	"testing"

	"github.com/watzon/waypost/internal/manifest"
)

func referenceRules(t *testing.T) *RuleSet {
	t.Helper()

	rs, err := CompileRules([]manifest.RedirectRule{
		{From: "/api/calculate", To: "/.netlify/functions/api", Status: 200, Force: true, Methods: []string{"POST"}},
		{From: "/api/status", To: "/.netlify/functions/api", Status: 200, Force: true, Methods: []string{"GET"}},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	return rs
}

func TestMatch_RewriteCalculate(t *testing.T) {
	rs := referenceRules(t)

	d, ok := rs.Match(Request{Path: "/api/calculate", Method: "POST"})
	if !ok {
		t.Fatal("expected POST /api/calculate to match")
	}
	if d.Type != DecisionRewrite {
		t.Errorf("expected rewrite decision, got %s", d.Type)
	}
	if d.Location != "/.netlify/functions/api" {
		t.Errorf("expected target /.netlify/functions/api, got %s", d.Location)
	}
	if d.Status != 200 {
		t.Errorf("expected status 200, got %d", d.Status)
	}
}

func TestMatch_MethodRestriction(t *testing.T) {
	rs := referenceRules(t)

	if _, ok := rs.Match(Request{Path: "/api/calculate", Method: "GET"}); ok {
		t.Error("GET /api/calculate must not match a POST-only rule")
	}
	if _, ok := rs.Match(Request{Path: "/api/status", Method: "POST"}); ok {
		t.Error("POST /api/status must not match a GET-only rule")
	}
	if d, ok := rs.Match(Request{Path: "/api/status", Method: "GET"}); !ok || d.Type != DecisionRewrite {
		t.Error("GET /api/status must rewrite")
	}
}

func TestMatch_Unmatched(t *testing.T) {
	rs := referenceRules(t)

	if _, ok := rs.Match(Request{Path: "/api/unknown", Method: "GET"}); ok {
		t.Error("unmatched paths must fall through")
	}
	if _, ok := rs.Match(Request{Path: "/", Method: "GET"}); ok {
		t.Error("root must fall through")
	}
}

func TestMatch_ForceOverridesStaticAssets(t *testing.T) {
	rs := referenceRules(t)

	// force=true rules win even when a static asset shadows the path.
	if _, ok := rs.Match(Request{Path: "/api/calculate", Method: "POST", HasStaticAsset: true}); !ok {
		t.Error("force rule must apply over a static asset")
	}

	soft, err := CompileRules([]manifest.RedirectRule{
		{From: "/docs", To: "/documentation", Status: 301},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}
	if _, ok := soft.Match(Request{Path: "/docs", Method: "GET", HasStaticAsset: true}); ok {
		t.Error("non-force rule must yield to a static asset")
	}
	if _, ok := soft.Match(Request{Path: "/docs", Method: "GET"}); !ok {
		t.Error("non-force rule must apply when no static asset exists")
	}
}

func TestMatch_CaseAndSlashInsensitive(t *testing.T) {
	rs := referenceRules(t)

	if _, ok := rs.Match(Request{Path: "/API/Calculate", Method: "POST"}); !ok {
		t.Error("matching must be case-insensitive")
	}
	if _, ok := rs.Match(Request{Path: "/api/status/", Method: "GET"}); !ok {
		t.Error("matching must ignore trailing slashes")
	}
}

func TestMatch_FirstRuleWins(t *testing.T) {
	rs, err := CompileRules([]manifest.RedirectRule{
		{From: "/a", To: "/first", Status: 200},
		{From: "/a", To: "/second", Status: 301},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}

	d, ok := rs.Match(Request{Path: "/a", Method: "GET"})
	if !ok {
		t.Fatal("expected a match")
	}
	if d.Location != "/first" {
		t.Errorf("expected the first rule to win, got %s", d.Location)
	}
}

func TestMatch_SplatSubstitution(t *testing.T) {
	rs, err := CompileRules([]manifest.RedirectRule{
		{From: "/api/*", To: "/.netlify/functions/:splat", Status: 200, Force: true},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}

	d, ok := rs.Match(Request{Path: "/api/orders/42", Method: "GET"})
	if !ok {
		t.Fatal("expected splat rule to match")
	}
	if d.Location != "/.netlify/functions/orders/42" {
		t.Errorf("expected splat substitution, got %s", d.Location)
	}

	// A splat also matches the bare prefix.
	if _, ok := rs.Match(Request{Path: "/api", Method: "GET"}); !ok {
		t.Error("expected splat rule to match the bare prefix")
	}
}

func TestMatch_PlaceholderSubstitution(t *testing.T) {
	rs, err := CompileRules([]manifest.RedirectRule{
		{From: "/orders/:id", To: "/.netlify/functions/orders/:id", Status: 200},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}

	d, ok := rs.Match(Request{Path: "/orders/A17", Method: "GET"})
	if !ok {
		t.Fatal("expected placeholder rule to match")
	}
	if d.Location != "/.netlify/functions/orders/A17" {
		t.Errorf("expected placeholder capture to keep its case, got %s", d.Location)
	}

	if _, ok := rs.Match(Request{Path: "/orders/A17/items", Method: "GET"}); ok {
		t.Error("placeholder rules must not match extra segments")
	}
}

func TestMatch_RedirectAndCustomDecisions(t *testing.T) {
	rs, err := CompileRules([]manifest.RedirectRule{
		{From: "/old", To: "/new", Status: 301},
		{From: "/gone", To: "/tombstone.html", Status: 410},
	})
	if err != nil {
		t.Fatalf("CompileRules failed: %v", err)
	}

	d, _ := rs.Match(Request{Path: "/old", Method: "GET"})
	if d.Type != DecisionRedirect || d.Status != 301 {
		t.Errorf("expected 301 redirect decision, got %s %d", d.Type, d.Status)
	}

	d, _ = rs.Match(Request{Path: "/gone", Method: "GET"})
	if d.Type != DecisionCustom || d.Status != 410 {
		t.Errorf("expected 410 custom decision, got %s %d", d.Type, d.Status)
	}
}

func TestCompileRules_PreservesCount(t *testing.T) {
	rs := referenceRules(t)
	if rs.Len() != 2 {
		t.Errorf("expected 2 compiled rules, got %d", rs.Len())
	}
}
