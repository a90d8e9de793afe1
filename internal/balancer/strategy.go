// Package balancer implements the load-balancing strategies a backend pool
// picks an upstream address with: round robin, random, IP hash, least
// connection, and sticky cookie wrapping any of the above.
package balancer

import (
	"net/http"
)

// Context carries the information a Strategy needs to pick an address. It is
// built fresh by the dispatcher for every request from the currently
// selectable (healthy, or healthy-then-slow) address set.
type Context struct {
	ClientAddress      string
	BackendAddresses   []string
}

// Forwarder names the chosen upstream and carries a response-side
// transformation to apply once the upstream has answered. The zero value of
// ApplyResponse (nil) means "no transformation".
type Forwarder struct {
	BackendAddress string
	ApplyResponse  func(http.Header)
}

// MapResponse returns a Forwarder that runs fn after any transformation this
// Forwarder already carries, mirroring the response-mapper composition the
// original strategy package builds sticky cookies on top of.
func (f Forwarder) MapResponse(fn func(http.Header)) Forwarder {
	prev := f.ApplyResponse
	return Forwarder{
		BackendAddress: f.BackendAddress,
		ApplyResponse: func(h http.Header) {
			if prev != nil {
				prev(h)
			}
			fn(h)
		},
	}
}

// Strategy selects a backend address for a request and observes the
// lifetime of the resulting upstream connection. Implementations must be
// safe for concurrent use.
type Strategy interface {
	SelectBackend(r *http.Request, ctx Context) Forwarder
	OnOpen(address string)
	OnClose(address string)
}

// noopLifecycle satisfies OnOpen/OnClose for strategies that keep no
// per-address counters.
type noopLifecycle struct{}

func (noopLifecycle) OnOpen(string)  {}
func (noopLifecycle) OnClose(string) {}
