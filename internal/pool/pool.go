// Package pool defines the backend pool: the matcher that decides which
// requests belong to it, the set of upstream addresses and their
// healthiness, the strategy that picks among them, and the middleware
// chain and HTTP client a matched request is forwarded through.
package pool

import (
	"net/http"

	"ridgelb/internal/balancer"
	"ridgelb/internal/matcher"
	"ridgelb/internal/middleware"
)

// Scheme is a listener protocol a pool can be reached on.
type Scheme string

const (
	HTTP  Scheme = "HTTP"
	HTTPS Scheme = "HTTPS"
)

// Address pairs a configured upstream "host:port" with its independently
// updated healthiness cell.
type Address struct {
	Authority string
	Health    *Cell
}

// HealthConfig controls how the health checker probes this pool's
// addresses.
type HealthConfig struct {
	SlowThresholdMS int64
	TimeoutMS       int64
	ProbePath       string
}

// ClientConfig controls the pool's upstream HTTP client pool.
type ClientConfig struct {
	PoolIdleTimeoutSeconds int
	PoolMaxIdlePerHost     int
}

// BackendPool is a routing target: requests whose scheme and Matcher match
// are load-balanced across Addresses via Strategy, after passing through
// Chain.
type BackendPool struct {
	Matcher  matcher.Matcher
	Schemes  map[Scheme]bool
	Addresses []*Address
	Health   HealthConfig
	Strategy balancer.Strategy
	Chain    *middleware.Chain
	Clients  *ClientPool
}

// Equal reports whether two pools were configured with the same matcher,
// matching the data model's "two pools compare equal iff their matchers
// compare equal" invariant.
func (p *BackendPool) Equal(other *BackendPool) bool {
	if other == nil {
		return false
	}
	return p.Matcher.Equal(other.Matcher)
}

// Matches reports whether this pool accepts requests of the given listener
// scheme matching the request.
func (p *BackendPool) Matches(scheme Scheme, r *http.Request) bool {
	if !p.Schemes[scheme] {
		return false
	}
	return p.Matcher.Match(r)
}

// Selectable returns the addresses the strategy may currently choose from:
// every Healthy address, or, if none are healthy, every Slow address. An
// empty result means the pool has no usable address at all.
func (p *BackendPool) Selectable() []string {
	healthy := make([]string, 0, len(p.Addresses))
	slow := make([]string, 0, len(p.Addresses))
	for _, a := range p.Addresses {
		switch a.Health.Load().Status {
		case Healthy:
			healthy = append(healthy, a.Authority)
		case Slow:
			slow = append(slow, a.Authority)
		}
	}
	if len(healthy) > 0 {
		return healthy
	}
	return slow
}
