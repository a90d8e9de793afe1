// Command ridgelb runs the Layer-7 HTTP/HTTPS reverse-proxy load balancer:
// a TOML-configured set of backend pools, hot-reloaded from disk, served
// behind HTTP and/or HTTPS listeners with health-checked, strategy-selected
// upstream forwarding.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"

	"ridgelb/internal/acme"
	"ridgelb/internal/config"
	"ridgelb/internal/dispatcher"
	"ridgelb/internal/health"
	applog "ridgelb/internal/log"
	"ridgelb/internal/metrics"
	"ridgelb/internal/pool"
)

const appName = "ridgelb"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Layer-7 HTTP/HTTPS reverse-proxy load balancer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML configuration file (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

// run loads the config, builds the first RuntimeConfig snapshot, and
// starts every background task and listener until a termination signal
// arrives.
func run(configPath string) error {
	// An optional .env file is loaded into the process environment before
	// the TOML config is read; a missing .env file is not an error. No
	// setting is read back from the environment: configuration comes from
	// the TOML file alone.
	_ = godotenv.Load()

	fileCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}

	acmeStore := acme.NewStore()
	rc, err := config.Build(fileCfg, acmeStore)
	if err != nil {
		return fmt.Errorf("fatal: %w", err)
	}
	cell := config.NewCell(rc)

	watcher, err := config.NewWatcher(configPath, cell, acmeStore)
	if err != nil {
		return fmt.Errorf("fatal: could not watch %s: %w", configPath, err)
	}
	go watcher.Run()
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acmeCerts := newACMECertStore()
	if names, cfgs := acmeRenewalConfigs(fileCfg); len(names) > 0 {
		startACMERenewals(ctx, names, cfgs, acmeStore, acmeCerts)
	}

	checker := health.NewChecker(rc.HealthInterval, func() []*pool.BackendPool {
		return cell.Load().BackendPools
	})
	go checker.Run(ctx)
	defer checker.Stop()

	servers := startListeners(cell, acmeCerts)
	metricsServer := startMetricsServer()

	<-ctx.Done()
	applog.Info(appName, "shutting down")
	shutdownAll(append(servers, metricsServer))
	return nil
}

// acmeRenewalConfigs extracts the ACME-managed certificate entries from
// the decoded file config into the shape the renewal driver needs.
func acmeRenewalConfigs(fileCfg *config.FileConfig) ([]string, map[string]acme.RenewConfig) {
	names := make([]string, 0, len(fileCfg.Certificates))
	cfgs := make(map[string]acme.RenewConfig, len(fileCfg.Certificates))
	for name, fc := range fileCfg.Certificates {
		if fc.Acme == nil {
			continue
		}
		names = append(names, name)
		cfgs[name] = acme.RenewConfig{
			PrimaryName: name,
			Email:       fc.Acme.Email,
			Staging:     fc.Acme.Staging,
			PersistDir:  fc.Acme.PersistDir,
		}
	}
	return names, cfgs
}

// startListeners starts the HTTP and/or HTTPS acceptors named in the
// current snapshot. Both run against the same *config.Cell, so a reload
// takes effect on their very next request without restarting either
// listener.
func startListeners(cell *config.Cell, acmeCerts *acmeCertStore) []*http.Server {
	rc := cell.Load()
	var servers []*http.Server

	if rc.HTTPAddress != "" {
		srv := &http.Server{
			Addr:              rc.HTTPAddress,
			Handler:           dispatcher.New(cell, pool.HTTP),
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)
		go serve(srv, "http", rc.HTTPAddress)
	}

	if rc.HTTPSAddress != "" {
		tlsConfig := buildTLSConfig(cell, acmeCerts)
		srv := &http.Server{
			Addr:              rc.HTTPSAddress,
			Handler:           dispatcher.New(cell, pool.HTTPS),
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
		}
		// HTTP/2 with a 20s keepalive ping and 20s timeout.
		_ = http2.ConfigureServer(srv, &http2.Server{
			ReadIdleTimeout: 20 * time.Second,
			PingTimeout:     20 * time.Second,
		})
		servers = append(servers, srv)
		go serveTLS(srv, rc.HTTPSAddress)
	}

	return servers
}

func serve(srv *http.Server, scheme, addr string) {
	applog.Info(appName, "listening (%s) on %s", scheme, addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(appName, "listener %s stopped: %v", addr, err)
	}
}

func serveTLS(srv *http.Server, addr string) {
	applog.Info(appName, "listening (https) on %s", addr)
	// Certificates come from TLSConfig.GetCertificate; no static files here.
	if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(appName, "listener %s stopped: %v", addr, err)
	}
}

// startMetricsServer exposes the Prometheus registry on its own listener
// (port 9091, path /metrics), independent of the client-facing listeners.
func startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: ":9091", Handler: mux}
	go func() {
		applog.Info(appName, "metrics listening on :9091/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(appName, "metrics listener stopped: %v", err)
		}
	}()
	return srv
}

// shutdownAll drains every server gracefully: new connections stop being
// accepted immediately, and in-flight requests get up to 15s to complete
// before the process exits.
func shutdownAll(servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		_ = srv.Shutdown(ctx)
	}
}
