package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/cli"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/internal/presentation/tui"
	httpAdapter "github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/adapters/http"
	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves sessions over a JSON API with SSE flip streams and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		logger := newLogger(cmd)

		metrics := observability.NewMetrics()
		streams := httpAdapter.NewStreamManager(logger)

		opts := engineOptions(cmd)
		opts.Hooks = metrics.Hooks().Merge(streams.Hooks()).Merge(observability.LoggingHooks(logger))
		eng, err := cli.CreateEngine(cmd.Context(), opts, logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		srv := &http.Server{
			Addr: ":" + port,
			Handler: httpAdapter.NewHandler(eng,
				httpAdapter.WithStreams(streams),
				httpAdapter.WithMetricsHandler(metrics.Handler()),
				httpAdapter.WithLogger(logger),
			),
		}

		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting server", "addr", srv.Addr, "manifest", eng.Name, "mode", eng.Mode(), "records", eng.Records.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
