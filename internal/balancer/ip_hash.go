package balancer

import (
	"hash/fnv"
	"net"
	"net/http"
)

// IpHash routes a given client IP to the same address for as long as the
// selectable address set and its order are stable. The hash is a fixed,
// documented FNV-1a 64-bit so the mapping is reproducible across processes.
type IpHash struct {
	noopLifecycle
}

func NewIpHash() *IpHash {
	return &IpHash{}
}

func (s *IpHash) SelectBackend(_ *http.Request, ctx Context) Forwarder {
	if len(ctx.BackendAddresses) == 0 {
		return Forwarder{}
	}
	ip := ctx.ClientAddress
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(ip))
	idx := h.Sum64() % uint64(len(ctx.BackendAddresses))
	return Forwarder{BackendAddress: ctx.BackendAddresses[idx]}
}
