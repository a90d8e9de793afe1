package balancer

import (
	"math/rand"
	"net/http"
)

// Random picks a uniformly random address from the selectable set on every
// request. It keeps no state of its own, so there is nothing a config
// reload needs to carry forward.
type Random struct {
	noopLifecycle
}

func NewRandom() *Random {
	return &Random{}
}

func (s *Random) SelectBackend(_ *http.Request, ctx Context) Forwarder {
	if len(ctx.BackendAddresses) == 0 {
		return Forwarder{}
	}
	addr := ctx.BackendAddresses[rand.Intn(len(ctx.BackendAddresses))]
	return Forwarder{BackendAddress: addr}
}
