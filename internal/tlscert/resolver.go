// Package tlscert implements SNI-based certificate resolution against the
// live, hot-swappable certificate map published in the RuntimeConfig
// snapshot.
package tlscert

import (
	"crypto/tls"
	"fmt"
)

// Map is an immutable snapshot of server_name -> certificate. A new Map is
// built on every configuration reload; Resolver always reads whatever map
// is currently referenced.
type Map map[string]*tls.Certificate

// Resolver implements tls.Config.GetCertificate by looking up the
// handshake's SNI name in whatever Map is currently loaded.
type Resolver struct {
	load func() Map
}

// NewResolver builds a Resolver that defers to load() for the current
// certificate map on every handshake, so a reload takes effect on the very
// next TLS connection without restarting the listener.
func NewResolver(load func() Map) *Resolver {
	return &Resolver{load: load}
}

func (r *Resolver) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if hello.ServerName == "" {
		return nil, fmt.Errorf("tlscert: client hello carries no SNI server name")
	}
	m := r.load()
	if cert, ok := m[hello.ServerName]; ok {
		return cert, nil
	}
	return nil, fmt.Errorf("tlscert: no certificate configured for %q", hello.ServerName)
}
