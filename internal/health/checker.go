// Package health implements the periodic upstream prober that classifies
// every backend-pool address as Healthy, Slow, or Unresponsive.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "ridgelb/internal/log"
	"ridgelb/internal/pool"
)

const logApp = "health"

// PoolSource returns the backend pools to probe on the current tick. It is
// called once per round so a reload is picked up on the next tick without
// restarting the checker.
type PoolSource func() []*pool.BackendPool

// Checker runs PoolSource's pools through a GET probe on each address's
// configured path, on a fixed-interval repeating ticker, and writes the
// result into each address's healthiness cell. It is the cells' sole
// writer.
type Checker struct {
	Interval time.Duration
	Pools    PoolSource
	Client   *http.Client

	stop chan struct{}
	done chan struct{}
}

func NewChecker(interval time.Duration, pools PoolSource) *Checker {
	return &Checker{
		Interval: interval,
		Pools:    pools,
		Client:   &http.Client{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks probing every pool's addresses once per Interval until Stop is
// called or ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.probeRound(ctx)
		}
	}
}

func (c *Checker) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Checker) probeRound(ctx context.Context) {
	var wg sync.WaitGroup
	for _, p := range c.Pools() {
		for _, addr := range p.Addresses {
			wg.Add(1)
			go func(addr *pool.Address, cfg pool.HealthConfig) {
				defer wg.Done()
				prev := addr.Health.Load().Status
				next := c.probe(ctx, addr.Authority, cfg)
				addr.Health.Store(next)
				if next.Status != prev {
					applog.InfoWith(logApp, map[string]string{"backend": addr.Authority},
						"healthiness changed %s -> %s", prev, next.Status)
				}
			}(addr, p.Health)
		}
	}
	wg.Wait()
}

func (c *Checker) probe(ctx context.Context, authority string, cfg pool.HealthConfig) pool.Healthiness {
	path := cfg.ProbePath
	if path == "" {
		path = "/healthz"
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+authority+path, nil)
	if err != nil {
		return pool.Healthiness{Status: pool.Unresponsive}
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return pool.Healthiness{Status: pool.Unresponsive}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pool.Healthiness{Status: pool.Unresponsive}
	}

	slowThreshold := time.Duration(cfg.SlowThresholdMS) * time.Millisecond
	if slowThreshold > 0 && elapsed > slowThreshold {
		return pool.Healthiness{Status: pool.Slow, LatencyMS: elapsed.Milliseconds()}
	}
	return pool.Healthiness{Status: pool.Healthy}
}
