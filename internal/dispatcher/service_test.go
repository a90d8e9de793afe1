package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ridgelb/internal/acme"
	"ridgelb/internal/balancer"
	"ridgelb/internal/config"
	"ridgelb/internal/matcher"
	"ridgelb/internal/middleware"
	"ridgelb/internal/pool"
)

func newPool(t *testing.T, host string, addrs ...string) (*pool.BackendPool, []*httptest.Server) {
	t.Helper()
	var servers []*httptest.Server
	var addresses []*pool.Address
	for i, want := range addrs {
		label := want
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Backend", label)
			w.WriteHeader(http.StatusOK)
		}))
		servers = append(servers, srv)
		cell := pool.NewCell()
		if i == 0 {
			cell.Store(pool.Healthiness{Status: pool.Unresponsive})
		}
		addresses = append(addresses, &pool.Address{Authority: srv.Listener.Addr().String(), Health: cell})
	}
	bp := &pool.BackendPool{
		Matcher:   matcher.Host{Name: host},
		Schemes:   map[pool.Scheme]bool{pool.HTTP: true},
		Addresses: addresses,
		Health:    pool.HealthConfig{TimeoutMS: 1000},
		Strategy:  balancer.NewRoundRobin(),
		Chain:     middleware.NewChain(),
		Clients:   pool.NewClientPool(8, 0, 0),
	}
	return bp, servers
}

func newService(t *testing.T, pools ...*pool.BackendPool) *Service {
	t.Helper()
	rc := &config.RuntimeConfig{BackendPools: pools, AcmeStore: acme.NewStore()}
	cell := config.NewCell(rc)
	return New(cell, pool.HTTP)
}

func TestHostMatchingDispatchesToCorrectPool(t *testing.T) {
	poolA, serversA := newPool(t, "whoami.localhost", "a:1")
	defer serversA[0].Close()
	// newPool marks the first address Unresponsive; this scenario needs it healthy.
	poolA.Addresses[0].Health.Store(pool.Healthiness{Status: pool.Healthy})
	poolB, serversB := newPool(t, "other.localhost", "b:1")
	defer serversB[0].Close()

	svc := newService(t, poolA, poolB)

	req := httptest.NewRequest(http.MethodGet, "http://whoami.localhost/", nil)
	req.Host = "whoami.localhost"
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from pool A, got %d", w.Code)
	}
	if got := w.Header().Get("X-Backend"); got != "a:1" {
		t.Fatalf("expected response from backend a:1, got %q", got)
	}
}

func TestUnmatchedHostReturns404(t *testing.T) {
	poolA, serversA := newPool(t, "whoami.localhost", "a:1")
	defer serversA[0].Close()

	svc := newService(t, poolA)

	req := httptest.NewRequest(http.MethodGet, "http://whoami.de/", nil)
	req.Host = "whoami.de"
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthyFallsBackToSlowThenBadGateway(t *testing.T) {
	p, servers := newPool(t, "whoami.localhost", "a:1", "b:1")
	defer servers[0].Close()
	defer servers[1].Close()
	// a:1 starts Unresponsive (see newPool); mark b:1 Slow.
	p.Addresses[1].Health.Store(pool.Healthiness{Status: pool.Slow, LatencyMS: 300})

	svc := newService(t, p)

	req := httptest.NewRequest(http.MethodGet, "http://whoami.localhost/", nil)
	req.Host = "whoami.localhost"
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected the slow backend to serve the request, got %d", w.Code)
	}
	if got := w.Header().Get("X-Backend"); got != "b:1" {
		t.Fatalf("expected response from the slow backend, got %q", got)
	}

	// Both addresses become unresponsive: the next request must 502 without
	// invoking the strategy at all.
	p.Addresses[1].Health.Store(pool.Healthiness{Status: pool.Unresponsive})
	req2 := httptest.NewRequest(http.MethodGet, "http://whoami.localhost/", nil)
	req2.Host = "whoami.localhost"
	w2 := httptest.NewRecorder()
	svc.ServeHTTP(w2, req2)
	if w2.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when no address is selectable, got %d", w2.Code)
	}
}

func TestAcmeChallengeTakesPrecedenceOverPoolMatching(t *testing.T) {
	p, servers := newPool(t, "whoami.localhost", "a:1")
	defer servers[0].Close()

	store := acme.NewStore()
	store.AddChallenge("tok1", "proof-A")

	rc := &config.RuntimeConfig{BackendPools: []*pool.BackendPool{p}, AcmeStore: store}
	cell := config.NewCell(rc)
	svc := New(cell, pool.HTTP)

	req := httptest.NewRequest(http.MethodGet, "http://whoami.localhost/.well-known/acme-challenge/tok1", nil)
	req.Host = "whoami.localhost"
	w := httptest.NewRecorder()
	svc.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a known challenge token, got %d", w.Code)
	}
	if w.Body.String() != "proof-A" {
		t.Fatalf("expected body proof-A, got %q", w.Body.String())
	}

	reqUnknown := httptest.NewRequest(http.MethodGet, "http://whoami.localhost/.well-known/acme-challenge/nope", nil)
	reqUnknown.Host = "whoami.localhost"
	w2 := httptest.NewRecorder()
	svc.ServeHTTP(w2, reqUnknown)
	if w2.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown challenge token, got %d", w2.Code)
	}
}
