package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kirillkom/knowledge-base/internal/bootstrap"
	"github.com/kirillkom/knowledge-base/internal/config"
	"github.com/kirillkom/knowledge-base/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSCreatedSubject)
		err := app.Queue.SubscribeDocumentCreated(ctx, func(handlerCtx context.Context, documentID string) error {
			jobCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			app.Metrics.StartJob("index")
			start := time.Now()
			err := app.Indexer.IndexByID(jobCtx, documentID)
			app.Metrics.FinishJob("index", time.Since(start), err)
			return err
		})
		if err != nil {
			logger.Error("created subscription ended", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSDeletedSubject)
		err := app.Queue.SubscribeDocumentDeleted(ctx, func(handlerCtx context.Context, documentID string) error {
			jobCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
			defer cancel()

			app.Metrics.StartJob("remove")
			start := time.Now()
			err := app.Remover.RemoveByID(jobCtx, documentID)
			app.Metrics.FinishJob("remove", time.Since(start), err)
			return err
		})
		if err != nil {
			logger.Error("deleted subscription ended", "error", err)
		}
	}()

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
