package balancer

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoundRobinOrder(t *testing.T) {
	s := NewRoundRobin()
	ctx := Context{BackendAddresses: []string{"one", "two", "three"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	seq := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		seq = append(seq, s.SelectBackend(req, ctx).BackendAddress)
	}
	want := []string{"one", "two", "three", "one", "two", "three"}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("rr order mismatch got=%v want=%v", seq, want)
		}
	}
}

func TestIpHashStable(t *testing.T) {
	s := NewIpHash()
	ctx := Context{ClientAddress: "203.0.113.7:54321", BackendAddresses: []string{"a:1", "b:1", "c:1"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	first := s.SelectBackend(req, ctx).BackendAddress
	for i := 0; i < 10; i++ {
		if got := s.SelectBackend(req, ctx).BackendAddress; got != first {
			t.Fatalf("iphash unstable: got %s want %s", got, first)
		}
	}
}

func TestLeastConnectionPicksFewest(t *testing.T) {
	s := NewLeastConnection()
	ctx := Context{BackendAddresses: []string{"a", "b", "c"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	// cold start: all unobserved, a random pick happens but must be one of the set.
	first := s.SelectBackend(req, ctx).BackendAddress
	s.OnOpen(first)

	second := s.SelectBackend(req, ctx).BackendAddress
	if second == first {
		t.Fatalf("expected a different, unobserved address, got %s again", second)
	}
	s.OnOpen(second)

	third := s.SelectBackend(req, ctx).BackendAddress
	seen := map[string]bool{first: true, second: true}
	if seen[third] {
		t.Fatalf("expected the last untouched address, got %s", third)
	}
	s.OnOpen(third)

	s.OnClose(second)
	next := s.SelectBackend(req, ctx).BackendAddress
	if next != second {
		t.Fatalf("expected %s to become least-loaded again, got %s", second, next)
	}
}

func TestStickyCookieHonoursExistingAssignment(t *testing.T) {
	s := NewStickyCookie("LB", NewRoundRobin(), true, false, http.SameSiteLaxMode)
	ctx := Context{BackendAddresses: []string{"a:1", "b:1"}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "LB=b:1")

	fwd := s.SelectBackend(req, ctx)
	if fwd.BackendAddress != "b:1" {
		t.Fatalf("expected sticky address b:1, got %s", fwd.BackendAddress)
	}
	if fwd.ApplyResponse != nil {
		h := http.Header{}
		fwd.ApplyResponse(h)
		if h.Get("Set-Cookie") != "" {
			t.Fatalf("expected no Set-Cookie on a sticky hit, got %q", h.Get("Set-Cookie"))
		}
	}
}

func TestStickyCookieAssignsOnMiss(t *testing.T) {
	s := NewStickyCookie("LB", NewRoundRobin(), true, false, http.SameSiteLaxMode)
	ctx := Context{BackendAddresses: []string{"a:1", "b:1"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	fwd := s.SelectBackend(req, ctx)
	if fwd.BackendAddress == "" {
		t.Fatalf("expected a backend to be chosen")
	}
	if fwd.ApplyResponse == nil {
		t.Fatalf("expected a response mapper attaching Set-Cookie")
	}
	h := http.Header{}
	fwd.ApplyResponse(h)
	want := "LB=" + fwd.BackendAddress
	got := h.Get("Set-Cookie")
	if len(got) < len(want) || got[:len(want)] != want {
		t.Fatalf("expected Set-Cookie to start with %q, got %q", want, got)
	}
}

func TestStickyCookieFirstNameWins(t *testing.T) {
	s := NewStickyCookie("LB", NewRoundRobin(), true, false, http.SameSiteLaxMode)
	ctx := Context{BackendAddresses: []string{"a:1", "b:1"}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "LB=a:1; LB=b:1")

	fwd := s.SelectBackend(req, ctx)
	if fwd.BackendAddress != "a:1" {
		t.Fatalf("expected first occurrence a:1 to win, got %s", fwd.BackendAddress)
	}
}
