package pool

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ridgelb/internal/matcher"
)

func TestSelectablePrefersHealthyOverSlow(t *testing.T) {
	healthy := &Address{Authority: "127.0.0.1:1", Health: NewCell()}
	slow := &Address{Authority: "127.0.0.1:2", Health: NewCell()}
	slow.Health.Store(Healthiness{Status: Slow, LatencyMS: 300})

	p := &BackendPool{Addresses: []*Address{healthy, slow}}
	got := p.Selectable()
	if len(got) != 1 || got[0] != "127.0.0.1:1" {
		t.Fatalf("expected only the healthy address, got %v", got)
	}
}

func TestSelectableFallsBackToSlow(t *testing.T) {
	unresponsive := &Address{Authority: "127.0.0.1:1", Health: NewCell()}
	unresponsive.Health.Store(Healthiness{Status: Unresponsive})
	slow := &Address{Authority: "127.0.0.1:2", Health: NewCell()}
	slow.Health.Store(Healthiness{Status: Slow, LatencyMS: 300})

	p := &BackendPool{Addresses: []*Address{unresponsive, slow}}
	got := p.Selectable()
	if len(got) != 1 || got[0] != "127.0.0.1:2" {
		t.Fatalf("expected fallback to the slow address, got %v", got)
	}
}

func TestSelectableEmptyWhenAllUnresponsive(t *testing.T) {
	a := &Address{Authority: "127.0.0.1:1", Health: NewCell()}
	a.Health.Store(Healthiness{Status: Unresponsive})
	b := &Address{Authority: "127.0.0.1:2", Health: NewCell()}
	b.Health.Store(Healthiness{Status: Unresponsive})

	p := &BackendPool{Addresses: []*Address{a, b}}
	if got := p.Selectable(); len(got) != 0 {
		t.Fatalf("expected no selectable addresses, got %v", got)
	}
}

func TestMatchesChecksSchemeAndMatcher(t *testing.T) {
	p := &BackendPool{
		Matcher: matcher.Host{Name: "whoami.localhost"},
		Schemes: map[Scheme]bool{HTTP: true},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "whoami.localhost"

	if !p.Matches(HTTP, req) {
		t.Fatalf("expected HTTP request with matching host to match")
	}
	if p.Matches(HTTPS, req) {
		t.Fatalf("expected HTTPS request to be rejected: pool only serves HTTP")
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.Host = "other.localhost"
	if p.Matches(HTTP, other) {
		t.Fatalf("expected non-matching host to be rejected")
	}
}

func TestEqualComparesMatcherOnly(t *testing.T) {
	a := &BackendPool{Matcher: matcher.Host{Name: "a.localhost"}}
	b := &BackendPool{Matcher: matcher.Host{Name: "a.localhost"}}
	c := &BackendPool{Matcher: matcher.Host{Name: "b.localhost"}}

	if !a.Equal(b) {
		t.Fatalf("expected pools with the same matcher to compare equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected pools with different matchers to compare unequal")
	}
	if a.Equal(nil) {
		t.Fatalf("expected comparison against nil to be false")
	}
}
