package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/layer-catalog-service/internal/adapter/http"
	"github.com/couchcryptid/layer-catalog-service/internal/adapter/source"
	"github.com/couchcryptid/layer-catalog-service/internal/browser"
	"github.com/couchcryptid/layer-catalog-service/internal/debounce"
	"github.com/couchcryptid/layer-catalog-service/internal/observability"
)

const watchDebounce = 500 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog browsing API",
	Long: `Loads the catalog from CATALOG_SOURCE and serves the browsing session
over HTTP on HTTP_ADDR, together with /healthz, /readyz and /metrics.

A failed load is reported through the API; the server keeps running.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	metrics := observability.NewMetrics()

	src, err := source.New(cfg.CatalogSource, cfg.CatalogFetchTimeout)
	if err != nil {
		return err
	}
	ctrl := browser.New(src, debounce.New(nil), cfg.SearchDebounce, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !httpadapter.IsServerClosed(err) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Initial load. Failure is terminal for the load only.
	if err := ctrl.Load(ctx); err != nil {
		logger.Warn("serving without a catalog", "source", src.String())
	}

	if fs, ok := src.(*source.FileSource); ok && cfg.CatalogWatch {
		w, err := source.NewWatcher(fs.Path(), watchDebounce, nil, func() {
			if err := ctrl.Reload(ctx); err != nil {
				logger.Warn("catalog reload failed", "error", err)
			}
		}, logger)
		if err != nil {
			logger.Error("catalog watcher disabled", "error", err)
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Error("catalog watcher error", "error", err)
				}
			}()
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
