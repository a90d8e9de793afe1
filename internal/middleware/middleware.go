// Package middleware implements the request/response chain a backend pool
// runs every request through before (and after) forwarding it upstream:
// body-size limiting, rate limiting, basic-auth directory lookup, HTTPS
// redirection, compression negotiation, and custom error pages.
package middleware

import "net/http"

// Middleware can short-circuit a request by returning a non-nil response
// from ModifyRequest, and can rewrite a response on the way back out via
// ModifyResponse. A middleware that does not care about one side simply
// returns (r, nil) / passes the response through unchanged (see passthrough).
type Middleware interface {
	// ModifyRequest inspects/mutates the inbound request. Returning a
	// non-nil response short-circuits the chain: neither later
	// middlewares nor the upstream forward run, and ModifyResponse is
	// still called for every middleware already entered, innermost first.
	ModifyRequest(r *http.Request) (*http.Request, *http.Response)
	ModifyResponse(resp *http.Response, r *http.Request) *http.Response
}

// Chain runs an ordered list of middlewares around a terminal forward
// step. Construct with NewChain; the zero value is not usable.
type Chain struct {
	entries []Middleware
}

func NewChain(entries ...Middleware) *Chain {
	return &Chain{entries: entries}
}

// Run executes the chain. forward is invoked only if no middleware
// short-circuits; its result is then passed back through every entered
// middleware's ModifyResponse, innermost (last entered) first.
func (c *Chain) Run(r *http.Request, forward func(*http.Request) *http.Response) *http.Response {
	entered := make([]Middleware, 0, len(c.entries))
	cur := r

	var resp *http.Response
	for _, mw := range c.entries {
		var shortCircuit *http.Response
		cur, shortCircuit = mw.ModifyRequest(cur)
		entered = append(entered, mw)
		if shortCircuit != nil {
			resp = shortCircuit
			break
		}
	}
	if resp == nil {
		resp = forward(cur)
	}

	for i := len(entered) - 1; i >= 0; i-- {
		resp = entered[i].ModifyResponse(resp, cur)
	}
	return resp
}

// passthrough embeds into middlewares that only care about one side of the
// exchange, giving them a no-op implementation of the other.
type passthrough struct{}

func (passthrough) ModifyResponse(resp *http.Response, _ *http.Request) *http.Response { return resp }
func (passthrough) ModifyRequest(r *http.Request) (*http.Request, *http.Response)      { return r, nil }
