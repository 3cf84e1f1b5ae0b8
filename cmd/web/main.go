package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crm-web/internal/application/account"
	"github.com/crm-web/internal/application/verification"
	"github.com/crm-web/internal/config"
	"github.com/crm-web/internal/infrastructure/backend"
	jwtinfra "github.com/crm-web/internal/infrastructure/jwt"
	redisinfra "github.com/crm-web/internal/infrastructure/redis"
	"github.com/crm-web/internal/pkg/logger"
	"github.com/crm-web/internal/pkg/metrics"
	transporthttp "github.com/crm-web/internal/transport/http"
	"github.com/crm-web/internal/transport/ws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if envErr != nil {
		zl.Info("no .env file found, reading from environment")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := backend.NewClient(cfg.Backend)

	inspector := jwtinfra.NewInspector(cfg.Backend)
	if !inspector.Verifies() {
		zl.Warn("BACKEND_JWT_SECRET not set; access tokens are decoded without signature checks")
	}

	views := ws.NewHandler(
		m.InstrumentVerifier(client),
		cfg.AllowedOrigins,
		cfg.WSSendBuffer,
		zl.Named("ws"),
		verification.WithRedirectDelay(cfg.RedirectDelay),
		verification.WithLoginRoute(cfg.LoginRoute),
	).WithRecorder(m)

	deps := &transporthttp.Deps{
		Account: account.NewService(client, inspector, zl.Named("account")),
		Backend: client,
		Views:   views,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:  zl,
	}

	// Shared rate limiting (optional; graceful fallback to per-process limits).
	if cfg.RedisAddr != "" {
		cache := redisinfra.NewCache(cfg.RedisAddr, cfg.RedisPassword)
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := cache.Ping(pingCtx)
		pingCancel()
		if err != nil {
			zl.Warn("redis not available, rate limits stay per process", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = cache.Close()
		} else {
			defer func() { _ = cache.Close() }()
			deps.Counter = cache
		}
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("backend", cfg.Backend.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	// Shutdown does not track hijacked connections, so views are closed separately.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
	if err := views.Close(shutdownCtx); err != nil {
		zl.Error("verification views did not close in time", zap.Error(err))
	}
	zl.Info("server stopped")
}
