package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ridgelb/internal/matcher"
	"ridgelb/internal/pool"
)

func newAddress(authority string) *pool.Address {
	return &pool.Address{Authority: authority, Health: pool.NewCell()}
}

func TestCheckerMarksUnresponsive(t *testing.T) {
	addr := newAddress("127.0.0.1:1") // nothing listens here
	p := &pool.BackendPool{
		Matcher:   matcher.Host{Name: "x"},
		Addresses: []*pool.Address{addr},
		Health:    pool.HealthConfig{TimeoutMS: 200, SlowThresholdMS: 100, ProbePath: "/healthz"},
	}

	checker := NewChecker(time.Hour, func() []*pool.BackendPool { return []*pool.BackendPool{p} })
	checker.probeRound(context.Background())

	if got := addr.Health.Load().Status; got != pool.Unresponsive {
		t.Fatalf("expected Unresponsive, got %v", got)
	}
}

func TestCheckerMarksHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr := newAddress(srv.Listener.Addr().String())
	p := &pool.BackendPool{
		Matcher:   matcher.Host{Name: "x"},
		Addresses: []*pool.Address{addr},
		Health:    pool.HealthConfig{TimeoutMS: 2000, SlowThresholdMS: 1000, ProbePath: "/healthz"},
	}

	checker := NewChecker(time.Hour, func() []*pool.BackendPool { return []*pool.BackendPool{p} })
	checker.probeRound(context.Background())

	if got := addr.Health.Load().Status; got != pool.Healthy {
		t.Fatalf("expected Healthy, got %v", got)
	}
}

func TestCheckerMarksUnresponsiveOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	addr := newAddress(srv.Listener.Addr().String())
	p := &pool.BackendPool{
		Matcher:   matcher.Host{Name: "x"},
		Addresses: []*pool.Address{addr},
		Health:    pool.HealthConfig{TimeoutMS: 2000, SlowThresholdMS: 1000, ProbePath: "/healthz"},
	}

	checker := NewChecker(time.Hour, func() []*pool.BackendPool { return []*pool.BackendPool{p} })
	checker.probeRound(context.Background())

	if got := addr.Health.Load().Status; got != pool.Unresponsive {
		t.Fatalf("expected Unresponsive on 503, got %v", got)
	}
}
