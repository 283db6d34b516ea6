package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/config"
	"github.com/arwahdevops/vaultprovider/internal/metrics"
	"github.com/arwahdevops/vaultprovider/internal/provider"
)

// StateReporter is satisfied by *provider.Provider.
type StateReporter interface {
	State() provider.State
}

// NewMux wires /metrics, /healthz, /readyz, /schema and, when enabled, /debug/pprof.
func NewMux(cfg *config.HostConfig, metricsStore *metrics.Store, probe StateReporter, logger *zap.Logger) *http.ServeMux {
	log := logger.Named("http-server")
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(metricsStore.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	// Ready only once authentication has succeeded. Failed is terminal, so a
	// failed provider stays unready until the process is restarted.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		state := probe.State()
		if state == provider.Ready {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "Ready")
			return
		}
		log.Warn("Readiness check failed", zap.Stringer("provider_state", state))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Not Ready: provider_state=%s\n", state)
	})

	mux.HandleFunc("/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(provider.ConfigSchema()); err != nil {
			log.Error("Failed to encode schema", zap.Error(err))
		}
	})

	if cfg.EnablePprof {
		log.Info("Enabling pprof endpoints on /debug/pprof/")
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		log.Info("Pprof endpoints are disabled.")
	}

	return mux
}

// RunHTTPServer serves NewMux on the metrics port until ctx is cancelled.
func RunHTTPServer(
	ctx context.Context,
	cfg *config.HostConfig,
	metricsStore *metrics.Store,
	probe StateReporter,
	logger *zap.Logger,
) {
	log := logger.Named("http-server")

	addr := fmt.Sprintf(":%d", cfg.MetricsPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      NewMux(cfg, metricsStore, probe, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server ListenAndServe error", zap.Error(err))
		}
		log.Info("HTTP server stopped listening")
	}()

	<-ctx.Done()
	log.Info("Shutting down HTTP server due to context cancellation...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("HTTP server gracefully stopped")
	}
}
