package pool

import (
	"context"
	"net"
	"net/http"
	"time"

	"ridgelb/internal/balancer"
)

// hopHeaders lists the hop-by-hop headers (RFC 7230 §6.1) stripped before a
// request crosses to the upstream, and before its response crosses back to
// the client.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// Forward sends r to the given upstream address using this pool's client
// pool, rewriting the request the way a reverse proxy must (hop header
// stripping, X-Forwarded-*, Host), and notifies Strategy of the
// connection's lifetime around the round trip. It never returns a nil
// response: every transport failure, including a timed-out deadline, maps
// to 502, matching the UpstreamError entry of the error taxonomy.
func Forward(r *http.Request, scheme Scheme, forwarder balancer.Forwarder, clients *ClientPool, strategy balancer.Strategy, timeout time.Duration) *http.Response {
	outbound := r.Clone(r.Context())
	outbound.URL.Scheme = "http"
	if scheme == HTTPS {
		outbound.URL.Scheme = "https"
	}
	outbound.URL.Host = forwarder.BackendAddress
	outbound.RequestURI = ""

	for _, h := range hopHeaders {
		outbound.Header.Del(h)
	}
	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && clientIP != "" {
		if xff := outbound.Header.Get("X-Forwarded-For"); xff == "" {
			outbound.Header.Set("X-Forwarded-For", clientIP)
		} else {
			outbound.Header.Set("X-Forwarded-For", xff+", "+clientIP)
		}
	}
	outbound.Header.Set("X-Forwarded-Proto", string(scheme))
	outbound.Header.Set("X-Forwarded-Host", r.Host)
	outbound.Host = forwarder.BackendAddress

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	outbound = outbound.WithContext(ctx)

	strategy.OnOpen(forwarder.BackendAddress)
	defer strategy.OnClose(forwarder.BackendAddress)

	client := clients.Get(forwarder.BackendAddress)
	resp, err := client.Do(outbound)
	if err != nil {
		return errorResponse(http.StatusBadGateway)
	}

	for _, h := range hopHeaders {
		resp.Header.Del(h)
	}
	if forwarder.ApplyResponse != nil {
		forwarder.ApplyResponse(resp.Header)
	}
	return resp
}

func errorResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:       http.NoBody,
	}
}
