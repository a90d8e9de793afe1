package tlscert

import (
	"crypto/tls"
	"testing"
)

func TestResolverLooksUpSNI(t *testing.T) {
	m := Map{"example.com": &tls.Certificate{}}
	r := NewResolver(func() Map { return m })

	cert, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"})
	if err != nil || cert == nil {
		t.Fatalf("expected a certificate for example.com, got err=%v", err)
	}

	if _, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "other.com"}); err == nil {
		t.Fatalf("expected an error for an unconfigured name")
	}
}

func TestResolverRequiresSNI(t *testing.T) {
	r := NewResolver(func() Map { return Map{} })
	if _, err := r.GetCertificate(&tls.ClientHelloInfo{}); err == nil {
		t.Fatalf("expected an error when SNI is absent")
	}
}

func TestResolverObservesLiveSwap(t *testing.T) {
	m := Map{}
	r := NewResolver(func() Map { return m })

	if _, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"}); err == nil {
		t.Fatalf("expected an error before the map is populated")
	}

	m = Map{"example.com": &tls.Certificate{}}
	if _, err := r.GetCertificate(&tls.ClientHelloInfo{ServerName: "example.com"}); err != nil {
		t.Fatalf("expected the resolver to observe the swapped map, got %v", err)
	}
}
