// Command storecheck boots the configured key-value backend, validates its
// command surface and serves health and metrics endpoints until interrupted.
// It is the smoke test run before pointing a test session at a backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KingInYellow18/medianest-sub013/internal/config"
	"github.com/KingInYellow18/medianest-sub013/internal/log"
	"github.com/KingInYellow18/medianest-sub013/internal/metrics"
	"github.com/KingInYellow18/medianest-sub013/internal/store"
	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting store check",
		"env", cfg.Env,
		"backend", cfg.Store.Backend,
		"addr", cfg.HTTPAddr,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("mns-store")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Build the backend and validate its command surface before handing
	// it to anything.
	backend, err := store.NewBackend(cfg.Store, logger)
	if err != nil {
		logger.Fatalw("Failed to create store backend", "error", err)
	}
	defer backend.Close()

	result := kv.DefaultValidator(cfg.Store.Backend, backend)
	for _, w := range result.Warnings {
		logger.Warnw("Backend validation warning", "warning", w)
	}
	if !result.Valid {
		for _, e := range result.Errors {
			logger.Errorw("Backend validation error", "error", e)
		}
		logger.Fatalw("Backend failed validation", "backend", cfg.Store.Backend)
	}
	logger.Infow("Backend validated", "metrics", result.Metrics)

	fixtures := store.NewFixtures(backend, nil, cfg.Record, cfg.Limit, logger, metricsObj)
	metricsObj.IncrementInstances(context.Background())

	router := chi.NewRouter()
	router.Handle("/metrics", metricsHandler)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := fixtures.Ping(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "backend": cfg.Store.Backend})
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("Store check serving", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		metricsObj.DecrementInstances(context.Background())
		logger.Infow("Store check stopped")
	}
}
