// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"idwallet/internal/credential"
	"idwallet/internal/credential/handler"
	"idwallet/internal/identity"
	"idwallet/internal/platform/config"
	"idwallet/internal/platform/httpserver"
	"idwallet/internal/platform/logger"
	"idwallet/internal/platform/metrics"
	"idwallet/internal/ratelimit"
	"idwallet/internal/security"
	"idwallet/internal/storage"
	httptransport "idwallet/internal/transport/http"
	"idwallet/pkg/securerand"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend storage.Store = storage.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := storage.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		backend = redisStore
	}

	m := metrics.New()

	limiter := ratelimit.New(ratelimit.WithLogger(log))
	limiter.StartJanitor(cfg.JanitorInterval)
	defer limiter.Close()

	monitor := security.NewMonitor(cfg.MonitorCapacity,
		security.WithSink(security.SlogSink{Logger: log}))

	svc := credential.New(backend, limiter, monitor, securerand.New(),
		credential.WithLogger(log),
		credential.WithMetrics(m),
		credential.WithIssuerName(cfg.IssuerName),
	)
	if err := svc.Initialize(ctx, cfg.WalletSecret); err != nil {
		log.Error("wallet initialization failed", "error", err)
		os.Exit(1)
	}

	provider := identity.NewStaticProvider("ethr")
	h := handler.New(svc, provider, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(h, log))

	log.Info("starting idwallet", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
