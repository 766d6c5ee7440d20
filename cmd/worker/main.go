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

	"github.com/arcadeops/manual-search/internal/bootstrap"
	"github.com/arcadeops/manual-search/internal/config"
	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/observability/logging"
	"github.com/arcadeops/manual-search/internal/observability/metrics"
)

const serviceName = "worker"

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

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	ingestDone := make(chan error, 1)
	mergeDone := make(chan error, 1)

	go func() {
		slog.Info("worker_subscribed", "subject", cfg.NATSIngestSubject)
		ingestDone <- app.Queue.SubscribeManualIngested(ctx, func(handlerCtx context.Context, manualID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
			defer cancel()

			workerMetrics.StartManual()
			start := time.Now()
			if manual, err := app.Manuals.GetByID(processCtx, manualID); err == nil {
				workerMetrics.ObserveQueueLag(serviceName, time.Since(manual.CreatedAt))
			}
			err := app.ProcessUC.ProcessByID(processCtx, manualID)
			workerMetrics.FinishManual(serviceName, time.Since(start), err)
			return err
		})
	}()

	go func() {
		slog.Info("worker_subscribed", "subject", cfg.NATSMergeSubject)
		mergeDone <- app.Queue.SubscribeMergeRequested(ctx, func(handlerCtx context.Context, job domain.MergeJob) error {
			mergeCtx, cancel := context.WithTimeout(handlerCtx, 10*time.Minute)
			defer cancel()

			start := time.Now()
			report, err := app.MergeUC.Merge(mergeCtx, job.TenantID, job.SourceManualID, job.TargetManualID)
			workerMetrics.FinishMerge(serviceName, time.Since(start), err)
			if err != nil {
				return err
			}
			slog.Info("merge_job_done",
				"job_id", job.ID,
				"target_manual_id", job.TargetManualID,
				"total_items_merged", report.TotalItemsMerged,
			)
			return nil
		})
	}()

	if err := <-ingestDone; err != nil {
		slog.Error("worker_subscription_failed", "subject", cfg.NATSIngestSubject, "error", err)
	}
	if err := <-mergeDone; err != nil {
		slog.Error("worker_subscription_failed", "subject", cfg.NATSMergeSubject, "error", err)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
