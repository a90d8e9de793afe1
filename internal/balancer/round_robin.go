package balancer

import (
	"net/http"
	"sync/atomic"
)

// RoundRobin cycles through the selectable address set in order. The
// counter is monotonic and shared across all requests routed to this
// strategy instance; it is never reset except by constructing a fresh
// instance (see config.Build, which rebuilds every strategy on reload).
type RoundRobin struct {
	noopLifecycle
	next uint64
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (s *RoundRobin) SelectBackend(_ *http.Request, ctx Context) Forwarder {
	if len(ctx.BackendAddresses) == 0 {
		return Forwarder{}
	}
	i := atomic.AddUint64(&s.next, 1) - 1
	addr := ctx.BackendAddresses[i%uint64(len(ctx.BackendAddresses))]
	return Forwarder{BackendAddress: addr}
}
