package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/arcadeops/manual-search/internal/adapters/http"
	"github.com/arcadeops/manual-search/internal/bootstrap"
	"github.com/arcadeops/manual-search/internal/config"
	"github.com/arcadeops/manual-search/internal/observability/logging"
	"github.com/arcadeops/manual-search/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	traffic := httpadapter.NewTrafficControl(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst, cfg.APIMaxInFlight)
	router := httpadapter.NewRouter(
		serviceName,
		app.SearchUC,
		app.RundownUC,
		app.MergeUC,
		app.IngestUC,
		app.QAImportUC,
		app.Manuals,
		app.Tenants,
		app.Queue,
		httpMetrics,
		traffic,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
