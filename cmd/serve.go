package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"freestylecal/internal/bootstrap"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/transport/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the events API and optionally scrape on a schedule",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		interval, _ := cmd.Flags().GetDuration("scrape-interval")
		if strings.TrimSpace(addr) == "" {
			addr = app.Config.HTTP.Addr
		}
		if !cmd.Flags().Changed("scrape-interval") {
			interval = app.Config.HTTP.ScrapeInterval
		}

		router, err := httpapi.NewRouter(ctx, httpapi.Options{
			Reader:    app.Catalog,
			RateLimit: app.Config.HTTP.RateLimit,
			Observer:  app.Metrics,
			Metrics:   app.Metrics.Handler(),
		})
		if err != nil {
			return errs.Wrap(err, "build router")
		}

		server := httpapi.NewServer(httpapi.ServerConfig{
			Addr:         addr,
			ReadTimeout:  app.Config.HTTP.ReadTimeout,
			WriteTimeout: app.Config.HTTP.WriteTimeout,
		}, router)

		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := server.Start(runCtx); err != nil {
			return errs.Wrap(err, "start http server")
		}

		if interval > 0 {
			go scrapeEvery(runCtx, app, interval)
		}

		var serveErr error
		select {
		case <-runCtx.Done():
			logging.Info(ctx, "shutdown requested")
		case serveErr = <-server.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Error(ctx, "http server shutdown failed", slog.Any("err", errs.Loggable(err)))
		}
		return errs.Wrap(serveErr, "serve http")
	}),
}

// scrapeEvery runs the aggregation on a fixed interval until ctx ends.
// Failures are logged and the next tick tries again.
func scrapeEvery(ctx context.Context, app *bootstrap.App, interval time.Duration) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "cmd.serve.scheduler"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info(logCtx, "scheduled scraping enabled", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := app.Aggregation.Run(ctx, aggregationInputFor(app))
			if err != nil {
				logging.Error(logCtx, "scheduled scrape failed", slog.Any("err", errs.Loggable(err)))
				continue
			}
			logging.Info(logCtx, "scheduled scrape finished", slog.String("run_id", result.RunID), slog.Int("events", result.Summary.Total))
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address; defaults to http.addr from config")
	serveCmd.Flags().Duration("scrape-interval", 0, "Scrape every interval while serving (0 disables)")
}
