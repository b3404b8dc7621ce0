// Package main is the entry point for the ivrflow operations server. It
// loads the flow configuration, serves health, metrics and admin
// endpoints, and applies between-call configuration reloads. The
// telephony adapter links against the engine packages directly; this
// process owns the shared operational plane.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/config"
	"github.com/automax/ivrflow/internal/logging"
	"github.com/automax/ivrflow/internal/metrics"
	"github.com/automax/ivrflow/internal/registry"
	"github.com/automax/ivrflow/internal/shutdown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(&logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Environment: cfg.Server.Environment,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting ivrflow",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Environment),
	)

	// Load flow configuration
	reg, err := registry.New(registry.Paths{
		Flow:       cfg.Flow.ConfigPath,
		Catalog:    cfg.Flow.CatalogPath,
		Agents:     cfg.Flow.AgentsPath,
		Recordings: cfg.Flow.RecordingsPath,
	}, logger.Zap())
	if err != nil {
		logger.Fatal("failed to load flow configuration", zap.Error(err))
	}
	logger.Info("flow configuration loaded",
		zap.Int("nodes", reg.Current().NodeCount()),
		zap.String("path", cfg.Flow.ConfigPath),
	)

	// Initialize metrics
	m := metrics.NewMetrics()

	// Initialize shutdown coordinator and readiness probe
	shutdownCoord := shutdown.NewCoordinator(&shutdown.Config{
		Timeout: 30 * time.Second,
	}, logger.Zap())
	readiness := shutdown.NewReadinessProbe(shutdownCoord)

	// Initialize router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !readiness.IsReady() {
			http.Error(w, "draining", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", m.Handler())
	r.Handle("/admin/loglevel", logger)
	r.Post("/admin/reload", func(w http.ResponseWriter, req *http.Request) {
		err := reg.Reload()
		m.RecordConfigReload(err == nil)
		if err != nil {
			logger.Error("configuration reload failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		logger.Info("configuration reloaded",
			zap.Int("nodes", reg.Current().NodeCount()),
		)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("reloaded"))
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// In-flight calls keep their loaded snapshot; draining the HTTP
	// server is all the ops plane needs before exit.
	shutdownCoord.RegisterFunc(shutdown.PhaseDrain, "http-server", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("received shutdown signal")

	if err := shutdownCoord.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown completed with errors", zap.Error(err))
	}
}
