package manifest

import (
	"errors"
	"strings"
	"testing"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	return fields
}

func TestValidate_Valid(t *testing.T) {
	m := &Manifest{
		Build: BuildConfig{Functions: "netlify/functions"},
		Redirects: []RedirectRule{
			{From: "/api/calculate", To: "/.netlify/functions/api", Status: 200, Force: true, Methods: []string{"POST"}},
		},
	}
	if err := Validate(m); err != nil {
		t.Errorf("expected valid manifest, got: %v", err)
	}
}

func TestValidate_MissingFromAndTo(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{{Status: 301}}})
	fields := fieldErrors(t, err)

	if _, ok := fields["redirects[0].from"]; !ok {
		t.Error("expected error for redirects[0].from")
	}
	if _, ok := fields["redirects[0].to"]; !ok {
		t.Error("expected error for redirects[0].to")
	}
}

func TestValidate_BadStatus(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{
		{From: "/a", To: "/b", Status: 999},
	}})
	fields := fieldErrors(t, err)
	if _, ok := fields["redirects[0].status"]; !ok {
		t.Error("expected error for redirects[0].status")
	}
}

func TestValidate_BadMethod(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{
		{From: "/a", To: "/b", Status: 200, Methods: []string{"FETCH"}},
	}})
	fields := fieldErrors(t, err)
	if msg, ok := fields["redirects[0].methods"]; !ok || !strings.Contains(msg, "FETCH") {
		t.Errorf("expected method error naming FETCH, got %q", msg)
	}
}

func TestValidate_RelativeFrom(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{
		{From: "api/calculate", To: "/b", Status: 200},
	}})
	fields := fieldErrors(t, err)
	if _, ok := fields["redirects[0].from"]; !ok {
		t.Error("expected error for relative from path")
	}
}

func TestValidate_AbsoluteURLTarget(t *testing.T) {
	m := &Manifest{Redirects: []RedirectRule{
		{From: "/external", To: "https://example.com/", Status: 302},
	}}
	if err := Validate(m); err != nil {
		t.Errorf("absolute URL targets should be valid, got: %v", err)
	}
}

func TestValidate_SplatPlacement(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{
		{From: "/api/*/deep", To: "/b", Status: 200},
	}})
	fields := fieldErrors(t, err)
	if _, ok := fields["redirects[0].from"]; !ok {
		t.Error("expected error for mid-pattern splat")
	}
}

func TestValidate_SplatTargetWithoutSplatSource(t *testing.T) {
	err := Validate(&Manifest{Redirects: []RedirectRule{
		{From: "/api/calculate", To: "/fn/:splat", Status: 200},
	}})
	fields := fieldErrors(t, err)
	if _, ok := fields["redirects[0].to"]; !ok {
		t.Error("expected error for :splat without splat source")
	}
}

func TestValidate_BuildPaths(t *testing.T) {
	err := Validate(&Manifest{Build: BuildConfig{Functions: "/abs/dir"}})
	fields := fieldErrors(t, err)
	if _, ok := fields["build.functions"]; !ok {
		t.Error("expected error for absolute functions directory")
	}

	err = Validate(&Manifest{Build: BuildConfig{Functions: "../escape"}})
	fields = fieldErrors(t, err)
	if _, ok := fields["build.functions"]; !ok {
		t.Error("expected error for path traversal")
	}
}
