// Package dispatcher implements the per-request routing contract: ACME
// short-circuit, pool matching, healthy-address selection, middleware
// chain, forwarding, and metrics.
package dispatcher

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"ridgelb/internal/acme"
	"ridgelb/internal/balancer"
	"ridgelb/internal/config"
	applog "ridgelb/internal/log"
	imetrics "ridgelb/internal/metrics"
	"ridgelb/internal/middleware"
	"ridgelb/internal/pool"
)

const logApp = "dispatcher"

// Service is the root http.Handler for both the HTTP and HTTPS listeners.
// Scheme tells it which listener it is answering for, since a *http.Request
// carries no such field on the server side.
type Service struct {
	Cell   *config.Cell
	Scheme pool.Scheme
	// ForwardTimeoutMultiplier scales a pool's health-check timeout into
	// the deadline given to an actual forwarded request (default 5x).
	ForwardTimeoutMultiplier int64
}

func New(cell *config.Cell, scheme pool.Scheme) *Service {
	return &Service{Cell: cell, Scheme: scheme, ForwardTimeoutMultiplier: 5}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	imetrics.IncActive()
	defer imetrics.DecActive()
	imetrics.ObserveBytes("inbound", r.ContentLength)
	r = middleware.WithClientScheme(r, schemeString(s.Scheme))

	rc := s.Cell.Load()
	if rc == nil {
		writeStatus(w, http.StatusServiceUnavailable)
		return
	}

	if rc.AcmeStore != nil {
		if resp := acme.NewHandler(rc.AcmeStore).RespondToChallenge(r); resp != nil {
			writeResponse(w, resp)
			return
		}
	}

	p := s.matchPool(rc, r)
	if p == nil {
		writeStatus(w, http.StatusNotFound)
		imetrics.ObserveRequest(r.Method, http.StatusNotFound, "", time.Since(start))
		return
	}

	selectable := p.Selectable()
	if len(selectable) == 0 {
		writeStatus(w, http.StatusBadGateway)
		imetrics.ObserveRequest(r.Method, http.StatusBadGateway, "", time.Since(start))
		return
	}

	ctx := balancer.Context{ClientAddress: r.RemoteAddr, BackendAddresses: selectable}
	forwarder := p.Strategy.SelectBackend(r, ctx)
	if forwarder.BackendAddress == "" {
		writeStatus(w, http.StatusBadGateway)
		imetrics.ObserveRequest(r.Method, http.StatusBadGateway, "", time.Since(start))
		return
	}

	timeout := time.Duration(p.Health.TimeoutMS*s.ForwardTimeoutMultiplier) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	resp := p.Chain.Run(r, func(req *http.Request) *http.Response {
		upstreamStart := time.Now()
		imetrics.IncBackendInflight(forwarder.BackendAddress)
		defer imetrics.DecBackendInflight(forwarder.BackendAddress)
		out := pool.Forward(req, s.Scheme, forwarder, p.Clients, p.Strategy, timeout)
		imetrics.ObserveBackendResponse(forwarder.BackendAddress, req.Method, out.StatusCode, time.Since(upstreamStart))
		return out
	})

	writeResponse(w, resp)
	imetrics.ObserveRequest(r.Method, resp.StatusCode, forwarder.BackendAddress, time.Since(start))
	if resp.StatusCode >= 500 {
		applog.ErrorWith(logApp, map[string]string{"backend": forwarder.BackendAddress},
			"upstream error status=%d method=%s path=%s", resp.StatusCode, r.Method, r.URL.Path)
	}
}

func (s *Service) matchPool(rc *config.RuntimeConfig, r *http.Request) *pool.BackendPool {
	for _, p := range rc.BackendPools {
		if p.Matches(s.Scheme, r) {
			return p
		}
	}
	return nil
}

func schemeString(s pool.Scheme) string {
	if s == pool.HTTPS {
		return "https"
	}
	return "http"
}

func writeStatus(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	if resp.ContentLength > 0 {
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != nil {
		n, _ := io.Copy(w, resp.Body)
		imetrics.ObserveBytes("outbound", n)
		resp.Body.Close()
	}
}
