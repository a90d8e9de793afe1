package main

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"ridgelb/internal/acme"
	"ridgelb/internal/config"
	applog "ridgelb/internal/log"
	"ridgelb/internal/tlscert"
)

// acmeCertStore holds the certificates minted by the ACME renewal drivers,
// kept separate from the file-backed certificates in a RuntimeConfig
// snapshot because ACME's blocking order/validate/finalize dance happens
// on its own goroutine, asynchronously from any config reload.
type acmeCertStore struct {
	mu    sync.RWMutex
	certs map[string]*tls.Certificate
}

func newACMECertStore() *acmeCertStore {
	return &acmeCertStore{certs: make(map[string]*tls.Certificate)}
}

func (s *acmeCertStore) put(name string, cert *tls.Certificate) {
	s.mu.Lock()
	s.certs[name] = cert
	s.mu.Unlock()
}

func (s *acmeCertStore) snapshot() tlscert.Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(tlscert.Map, len(s.certs))
	for k, v := range s.certs {
		out[k] = v
	}
	return out
}

// mergedCertMap combines the currently published RuntimeConfig's
// file-backed certificates with whatever the ACME drivers have minted so
// far, file-backed entries taking precedence for a name configured both
// ways.
func mergedCertMap(cell *config.Cell, acmeCerts *acmeCertStore) tlscert.Map {
	merged := acmeCerts.snapshot()
	rc := cell.Load()
	if rc != nil {
		for name, cert := range rc.Certificates {
			merged[name] = cert
		}
	}
	return merged
}

// startACMERenewals launches one renewal driver goroutine per ACME-managed
// certificate name, each running the order/validate/finalize protocol on
// its own goroutine and publishing the result into acmeCerts once minted.
// Renewal is retried with a fixed backoff on failure; it never blocks the
// caller.
func startACMERenewals(ctx context.Context, names []string, cfgs map[string]acme.RenewConfig, store *acme.Store, acmeCerts *acmeCertStore) {
	driver := acme.NewDriver(store)
	for _, name := range names {
		go runACMERenewal(ctx, driver, name, cfgs[name], acmeCerts)
	}
}

func runACMERenewal(ctx context.Context, driver *acme.Driver, name string, cfg acme.RenewConfig, acmeCerts *acmeCertStore) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := <-driver.ObtainAsync(ctx, cfg)
		if result.Err != nil {
			applog.ErrorWith("acme", map[string]string{"name": name}, "renewal failed: %v", result.Err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Minute):
			}
			continue
		}

		acmeCerts.put(name, &result.Cert)
		applog.InfoWith("acme", map[string]string{"name": name}, "certificate obtained/renewed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(12 * time.Hour):
		}
	}
}

func buildTLSConfig(cell *config.Cell, acmeCerts *acmeCertStore) *tls.Config {
	resolver := tlscert.NewResolver(func() tlscert.Map {
		return mergedCertMap(cell, acmeCerts)
	})
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: resolver.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	}
}
