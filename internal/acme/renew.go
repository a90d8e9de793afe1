package acme

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/acmez/v3"
	"github.com/mholt/acmez/v3/acme"
)

// RenewConfig describes one certificate this driver is responsible for
// keeping current.
type RenewConfig struct {
	PrimaryName string
	Email       string
	Staging     bool
	PersistDir  string
}

// Driver runs the ACME HTTP-01 order/validate/finalize protocol on its own
// goroutine (the underlying library performs blocking network round trips
// across an authorization challenge) and publishes pending challenge
// tokens into Store from the solver callback, independent of whatever the
// calling goroutine happens to be doing.
type Driver struct {
	Store *Store
}

func NewDriver(store *Store) *Driver {
	return &Driver{Store: store}
}

// Obtain returns a cached certificate for cfg.PrimaryName if at least one
// day remains on it, or drives a full ACME order to mint a new one. It
// blocks the calling goroutine; callers that must not block dispatch it
// onto its own goroutine and receive the result over a channel.
func (d *Driver) Obtain(ctx context.Context, cfg RenewConfig) (tls.Certificate, error) {
	if cert, ok := d.loadPersisted(cfg); ok && certValidFor(cert) > 24*time.Hour {
		return cert, nil
	}

	accountKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate account key: %w", err)
	}

	directory := acme.LetsEncryptProductionCA
	if cfg.Staging {
		directory = acme.LetsEncryptStagingCA
	}

	client := acmez.Client{
		Client: &acme.Client{Directory: directory},
		ChallengeSolvers: map[string]acmez.Solver{
			acme.ChallengeTypeHTTP01: &http01Solver{store: d.Store},
		},
	}

	account := acme.Account{
		Contact:              []string{"mailto:" + cfg.Email},
		TermsOfServiceAgreed: true,
		PrivateKey:           accountKey,
	}
	account, err = client.NewAccount(ctx, account)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("new acme account: %w", err)
	}

	certKey, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate certificate key: %w", err)
	}

	certs, err := client.ObtainCertificateForSANs(ctx, account, certKey, []string{cfg.PrimaryName})
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("obtain certificate: %w", err)
	}
	if len(certs) == 0 {
		return tls.Certificate{}, errors.New("acme: no certificates returned")
	}

	cert, err := buildTLSCertificate(certs[0].ChainPEM, certKey)
	if err != nil {
		return tls.Certificate{}, err
	}
	d.persist(cfg, certs[0].ChainPEM, certKey)
	return cert, nil
}

// http01Solver bridges acmez's challenge-solving callbacks to the shared
// Store the dispatcher's ACME filter reads from.
type http01Solver struct {
	store *Store
}

func (s *http01Solver) Present(_ context.Context, chal acme.Challenge) error {
	s.store.AddChallenge(chal.Token, chal.KeyAuthorization)
	return nil
}

func (s *http01Solver) CleanUp(_ context.Context, chal acme.Challenge) error {
	s.store.RemoveChallenge(chal.Token)
	return nil
}

func certValidFor(cert tls.Certificate) time.Duration {
	if len(cert.Certificate) == 0 {
		return 0
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return 0
	}
	return time.Until(leaf.NotAfter)
}

func (d *Driver) loadPersisted(cfg RenewConfig) (tls.Certificate, bool) {
	if cfg.PersistDir == "" {
		return tls.Certificate{}, false
	}
	certPEM, err := os.ReadFile(filepath.Join(cfg.PersistDir, cfg.PrimaryName+".crt"))
	if err != nil {
		return tls.Certificate{}, false
	}
	keyPEM, err := os.ReadFile(filepath.Join(cfg.PersistDir, cfg.PrimaryName+".key"))
	if err != nil {
		return tls.Certificate{}, false
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, false
	}
	return cert, true
}

func (d *Driver) persist(cfg RenewConfig, chainPEM []byte, key *rsa.PrivateKey) {
	if cfg.PersistDir == "" {
		return
	}
	if err := os.MkdirAll(cfg.PersistDir, 0o700); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(cfg.PersistDir, cfg.PrimaryName+".crt"), chainPEM, 0o600)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	_ = os.WriteFile(filepath.Join(cfg.PersistDir, cfg.PrimaryName+".key"), keyPEM, 0o600)
}

func buildTLSCertificate(chainPEM []byte, key *rsa.PrivateKey) (tls.Certificate, error) {
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	cert, err := tls.X509KeyPair(chainPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("assemble certificate: %w", err)
	}
	return cert, nil
}
