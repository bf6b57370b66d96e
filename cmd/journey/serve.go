package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/journey/internal/cli"
	httpAdapter "github.com/aretw0/journey/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes workflows and sessions as a JSON API over HTTP.
Sessions live in the configured store, so several replicas can share a redis store.
The OpenAPI document is served at /openapi.yaml and Prometheus metrics at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		maxInput, _ := cmd.Flags().GetInt("max-input")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		mgr, err := app.Manager()
		if err != nil {
			return err
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithCatalog(app.Engine.Registry()),
			httpAdapter.WithGatherer(app.Metrics),
			httpAdapter.WithLogger(logger),
		}
		if maxInput > 0 {
			opts = append(opts, httpAdapter.WithMaxInputSize(maxInput))
		}
		handler, err := httpAdapter.NewHandler(mgr, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Journey server", "addr", srv.Addr, "workflows", cfg.WorkflowsDir, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-sigCtx.Done():
			logger.Info("Shutting down", "signal", sigCtx.Signal())
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		logger.Info("Journey server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().Int("max-input", 0, "Maximum input size in bytes (0 uses the default)")
}
