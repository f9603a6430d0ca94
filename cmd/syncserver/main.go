// Command syncserver runs the player-state sync service: the authoritative
// store for per-player game progression shared across independently
// operated game servers (spec.md §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"goldbox-rpg/pkg/bootstrap"
	"goldbox-rpg/pkg/config"
	"goldbox-rpg/pkg/connector"
	"goldbox-rpg/pkg/httpapi"
	"goldbox-rpg/pkg/metrics"
	"goldbox-rpg/pkg/registry"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/sweeper"
	"goldbox-rpg/pkg/syncengine"
)

func main() {
	cfg := loadAndConfigureSystem()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewPostgresStore(ctx, cfg.DSN(), cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to player-state database")
	}
	defer st.Close()

	if err := store.RunMigrations(ctx, cfg.DSN()); err != nil {
		logrus.WithError(err).Fatal("failed to run database migrations")
	}

	if err := seedDevGameServers(ctx, st); err != nil {
		logrus.WithError(err).Warn("dev seed file present but failed to apply")
	}

	m := metrics.New()
	reg := registry.New(st)
	engine := syncengine.New(st, metrics.NewAuditSink(m), syncengine.Config{
		ActiveServerTimeout: cfg.ActiveServerTimeout,
		SeqTolerance:        cfg.SeqTolerance,
		SeqToleranceRecover: cfg.SeqToleranceRecover,
	})

	conn := connector.New(engine, reg, m, cfg)
	conn.Start(ctx)

	sw := sweeper.New(reg, st, knownServerIDs(ctx, reg, cfg), cfg.SweepInterval, cfg.AuditRetention)
	if err := sw.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start sweeper")
	}

	httpSrv := newHTTPServer(cfg, engine, reg, st, m, conn)
	metricsSrv := newMetricsServer(cfg, m)

	errChan := make(chan error, 2)
	startServerAsync(httpSrv, "offline HTTP surface", errChan)
	startServerAsync(metricsSrv, "metrics endpoint", errChan)

	waitForShutdown(ctx, errChan)
	performGracefulShutdown(cfg, conn, sw, httpSrv, metricsSrv)
}

func loadAndConfigureSystem() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	logrus.WithFields(logrus.Fields{
		"httpPort":    cfg.HTTPPort,
		"metricsPort": cfg.MetricsPort,
		"devMode":     cfg.EnableDevMode,
	}).Info("starting player-state sync service")

	return cfg
}

// seedDevGameServers applies ./dev-seed.yaml if present (§9 Design Note:
// dev bootstrap, never required in production).
func seedDevGameServers(ctx context.Context, st store.Store) error {
	sf, err := bootstrap.LoadSeedFile("dev-seed.yaml")
	if err != nil {
		return err
	}
	return bootstrap.Apply(ctx, st, sf)
}

// knownServerIDs resolves every configured dial target's token to its
// canonical serverId, for the sweeper's liveness check. Targets that fail
// to resolve are skipped with a warning rather than failing startup: a
// misconfigured target is already visible via the connector's own reconnect
// logging.
func knownServerIDs(ctx context.Context, reg *registry.Registry, cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.GameServers))
	for _, target := range cfg.GameServers {
		server, outcome, err := reg.ResolveToken(ctx, target.Token)
		if err != nil || outcome != registry.TokenOK {
			logrus.WithFields(logrus.Fields{
				"function": "knownServerIDs",
				"target":   target.URL,
				"outcome":  outcome,
			}).Warn("configured game server token did not resolve at startup")
			continue
		}
		ids = append(ids, server.ServerID)
	}
	return ids
}

func newHTTPServer(cfg *config.Config, engine *syncengine.Engine, reg *registry.Registry, st store.Store, m *metrics.Metrics, conn *connector.Connector) *http.Server {
	api := httpapi.New(httpapi.Config{
		Engine:            engine,
		Registry:          reg,
		Store:             st,
		Metrics:           m,
		APIKey:            cfg.SyncAPIKey,
		RequestsPerSecond: cfg.RateLimitRequestsPerSecond,
		Burst:             cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/sync/", api.Handler())
	mux.Handle("/ws", conn.ListenerHandler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}
}

func newMetricsServer(cfg *config.Config, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: mux,
	}
}

func startServerAsync(srv *http.Server, name string, errChan chan error) {
	go func() {
		logrus.WithFields(logrus.Fields{"name": name, "addr": srv.Addr}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("%s failed: %w", name, err)
		}
	}()
}

func waitForShutdown(ctx context.Context, errChan chan error) {
	select {
	case <-ctx.Done():
		logrus.Info("received shutdown signal")
	case err := <-errChan:
		logrus.WithError(err).Error("server error, shutting down")
	}
}

func performGracefulShutdown(cfg *config.Config, conn *connector.Connector, sw *sweeper.Sweeper, servers ...*http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("error shutting down HTTP server")
		}
	}

	if err := conn.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("error shutting down connector")
	}

	sw.Stop()

	logrus.Info("shutdown complete")
}
