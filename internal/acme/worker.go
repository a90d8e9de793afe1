package acme

import (
	"context"
	"crypto/tls"
)

// Result is delivered once over the channel ObtainAsync returns.
type Result struct {
	Cert tls.Certificate
	Err  error
}

// ObtainAsync runs Driver.Obtain on a dedicated goroutine and returns a
// channel the caller can select on, so the dispatcher and health checker
// are never blocked by an ACME order's network round trips.
func (d *Driver) ObtainAsync(ctx context.Context, cfg RenewConfig) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		cert, err := d.Obtain(ctx, cfg)
		out <- Result{Cert: cert, Err: err}
	}()
	return out
}
