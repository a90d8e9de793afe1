package config

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"ridgelb/internal/acme"
	"ridgelb/internal/balancer"
	applog "ridgelb/internal/log"
	"ridgelb/internal/matcher"
	"ridgelb/internal/middleware"
	"ridgelb/internal/pool"
	"ridgelb/internal/tlscert"
)

// RuntimeConfig is the immutable, fully-initialised snapshot a reload
// publishes. It is never mutated in place; a new one replaces it whole.
type RuntimeConfig struct {
	HTTPAddress    string
	HTTPSAddress   string
	HealthInterval time.Duration
	BackendPools   []*pool.BackendPool
	Certificates   tlscert.Map
	AcmeStore      *acme.Store
}

// Build turns a decoded FileConfig into a fully-initialised RuntimeConfig:
// fresh healthiness cells (all Healthy), fresh strategy and middleware
// instances, fresh per-pool client pools, and a resolved certificate map.
// acmeStore is carried across rebuilds (unlike strategy state) since a
// challenge already in flight must remain visible to the dispatcher across
// a reload that happens mid-renewal.
func Build(cfg *FileConfig, acmeStore *acme.Store) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{
		HTTPAddress:    cfg.HTTPAddress,
		HTTPSAddress:   cfg.HTTPSAddress,
		HealthInterval: time.Duration(cfg.HealthInterval) * time.Second,
		Certificates:   tlscert.Map{},
		AcmeStore:      acmeStore,
	}
	if rc.HealthInterval <= 0 {
		rc.HealthInterval = 10 * time.Second
	}

	applog.Configure(cfg.Logging.LokiURL, boolOr(cfg.Logging.InfoEnabled, true),
		boolOr(cfg.Logging.DebugEnabled, false), boolOr(cfg.Logging.ErrorEnabled, true))

	for i, fp := range cfg.BackendPools {
		p, err := buildPool(fp)
		if err != nil {
			return nil, fmt.Errorf("backend_pools[%d]: %w", i, err)
		}
		rc.BackendPools = append(rc.BackendPools, p)
	}

	for name, fc := range cfg.Certificates {
		if fc.Acme != nil {
			continue // resolved asynchronously by the renewal driver, not at Build time.
		}
		cert, err := tls.LoadX509KeyPair(fc.FileCertPath, fc.FileKeyPath)
		if err != nil {
			return nil, fmt.Errorf("certificates[%s]: %w", name, err)
		}
		rc.Certificates[name] = &cert
	}

	return rc, nil
}

func buildPool(fp FilePool) (*pool.BackendPool, error) {
	m, err := buildMatcher(fp.Matcher)
	if err != nil {
		return nil, err
	}

	schemes := map[pool.Scheme]bool{}
	for _, s := range fp.Schemes {
		switch s {
		case "HTTP":
			schemes[pool.HTTP] = true
		case "HTTPS":
			schemes[pool.HTTPS] = true
		default:
			return nil, fmt.Errorf("unknown scheme %q", s)
		}
	}

	addresses := make([]*pool.Address, 0, len(fp.Addresses))
	for _, a := range fp.Addresses {
		addresses = append(addresses, &pool.Address{Authority: a, Health: pool.NewCell()})
	}

	strategy, err := buildStrategy(fp.Strategy)
	if err != nil {
		return nil, err
	}

	chainEntries, err := buildMiddlewares(fp.Middlewares)
	if err != nil {
		return nil, err
	}

	idleTimeout := time.Duration(fp.Client.PoolIdleTimeoutSeconds) * time.Second

	return &pool.BackendPool{
		Matcher:   m,
		Schemes:   schemes,
		Addresses: addresses,
		Health: pool.HealthConfig{
			SlowThresholdMS: fp.HealthConfig.SlowThresholdMS,
			TimeoutMS:       fp.HealthConfig.TimeoutMS,
			ProbePath:       fp.HealthConfig.Path,
		},
		Strategy: strategy,
		Chain:    middleware.NewChain(chainEntries...),
		Clients:  pool.NewClientPool(fp.Client.PoolMaxIdlePerHost*16, idleTimeout, fp.Client.PoolMaxIdlePerHost),
	}, nil
}

func buildMatcher(fm FileMatcher) (matcher.Matcher, error) {
	switch fm.Type {
	case "Host":
		return matcher.Host{Name: fm.Host}, nil
	case "HostRegex":
		return matcher.NewHostRegex(fm.Regex)
	case "And":
		if fm.A == nil || fm.B == nil {
			return nil, fmt.Errorf("And matcher requires both a and b")
		}
		a, err := buildMatcher(*fm.A)
		if err != nil {
			return nil, err
		}
		b, err := buildMatcher(*fm.B)
		if err != nil {
			return nil, err
		}
		return matcher.And{A: a, B: b}, nil
	case "Or":
		if fm.A == nil || fm.B == nil {
			return nil, fmt.Errorf("Or matcher requires both a and b")
		}
		a, err := buildMatcher(*fm.A)
		if err != nil {
			return nil, err
		}
		b, err := buildMatcher(*fm.B)
		if err != nil {
			return nil, err
		}
		return matcher.Or{A: a, B: b}, nil
	default:
		return nil, fmt.Errorf("unknown matcher type %q", fm.Type)
	}
}

func buildStrategy(fs FileStrategy) (balancer.Strategy, error) {
	switch fs.Type {
	case "", "RoundRobin":
		return balancer.NewRoundRobin(), nil
	case "Random":
		return balancer.NewRandom(), nil
	case "IpHash":
		return balancer.NewIpHash(), nil
	case "LeastConnection":
		return balancer.NewLeastConnection(), nil
	case "StickyCookie":
		if fs.Inner == nil {
			return nil, fmt.Errorf("StickyCookie requires inner")
		}
		inner, err := buildStrategy(*fs.Inner)
		if err != nil {
			return nil, err
		}
		return balancer.NewStickyCookie(fs.CookieName, inner, fs.HTTPOnly, fs.Secure, sameSiteOf(fs.SameSite)), nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", fs.Type)
	}
}

func sameSiteOf(v string) http.SameSite {
	switch v {
	case "Strict":
		return http.SameSiteStrictMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func buildMiddlewares(entries []FileMiddleware) ([]middleware.Middleware, error) {
	out := make([]middleware.Middleware, 0, len(entries))
	for i, fm := range entries {
		mw, err := buildMiddleware(fm)
		if err != nil {
			return nil, fmt.Errorf("middlewares[%d]: %w", i, err)
		}
		out = append(out, mw)
	}
	return out, nil
}

func buildMiddleware(fm FileMiddleware) (middleware.Middleware, error) {
	switch fm.Type {
	case "MaxBodySize":
		return middleware.NewMaxBodySize(fm.Limit), nil
	case "RateLimiter":
		return middleware.NewRateLimiter(fm.RateLimit, time.Duration(fm.RateWindowSeconds)*time.Second), nil
	case "Authentication":
		return middleware.NewAuthentication(fm.DirectoryAddress, fm.UserBase, fm.RDNAttribute, fm.Recursive), nil
	case "HttpsRedirector":
		return middleware.NewHttpsRedirector(), nil
	case "Compression":
		return middleware.NewCompressionMiddleware(), nil
	case "CustomErrorPages":
		mapping := make(map[int]string, len(fm.Mapping))
		for status, body := range fm.Mapping {
			var code int
			if _, err := fmt.Sscanf(status, "%d", &code); err != nil {
				return nil, fmt.Errorf("CustomErrorPages: invalid status %q", status)
			}
			mapping[code] = body
		}
		return middleware.NewCustomErrorPages(mapping), nil
	default:
		return nil, fmt.Errorf("unknown middleware type %q", fm.Type)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
