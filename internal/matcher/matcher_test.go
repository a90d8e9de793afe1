package matcher

import (
	"net/http/httptest"
	"testing"
)

func TestHostMatch(t *testing.T) {
	m := Host{Name: "whoami.localhost"}
	req := httptest.NewRequest("GET", "http://whoami.localhost:8080/", nil)
	req.Host = "whoami.localhost:8080"
	if !m.Match(req) {
		t.Fatalf("expected host match ignoring port")
	}
	req.Host = "other.localhost"
	if m.Match(req) {
		t.Fatalf("expected no match for different host")
	}
}

func TestHostRegexMatch(t *testing.T) {
	m, err := NewHostRegex(`^.*\.example\.com$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "api.example.com"
	if !m.Match(req) {
		t.Fatalf("expected regex match")
	}
	req.Host = "example.org"
	if m.Match(req) {
		t.Fatalf("expected no regex match")
	}
}

func TestAndOr(t *testing.T) {
	a := Host{Name: "foo"}
	b, _ := NewHostRegex(`^f`)
	and := And{A: a, B: b}
	or := Or{A: a, B: Host{Name: "bar"}}

	req := httptest.NewRequest("GET", "/", nil)
	req.Host = "foo"
	if !and.Match(req) || !or.Match(req) {
		t.Fatalf("expected foo to satisfy And and Or")
	}
	req.Host = "bar"
	if and.Match(req) {
		t.Fatalf("expected And to fail for bar")
	}
	if !or.Match(req) {
		t.Fatalf("expected Or to match bar")
	}
}

func TestEqual(t *testing.T) {
	a1 := Host{Name: "foo"}
	a2 := Host{Name: "foo"}
	a3 := Host{Name: "bar"}
	if !a1.Equal(a2) {
		t.Fatalf("expected equal matchers to compare equal")
	}
	if a1.Equal(a3) {
		t.Fatalf("expected differing matchers to compare unequal")
	}
}
