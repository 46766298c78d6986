package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored scans over a read-only HTTP API",
	Long: `Serve exposes stored scans and on-demand parsing over HTTP:

  GET  /api/health                 liveness
  GET  /api/scans                  list scans (?status=, ?limit=)
  GET  /api/scans/{id}             scan metadata
  GET  /api/scans/{id}/results     display model
  GET  /api/scans/{id}/raw         raw audit output
  GET  /api/scans/{id}/report.html printable HTML report
  POST /api/parse                  parse posted output without storing it

Requests are rate limited per client IP. The server binds to
127.0.0.1:5000 by default; put it behind a reverse proxy to expose it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (default: listen_addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.EnsureDirectoryExists(); err != nil {
		return err
	}
	p, err := newParser()
	if err != nil {
		return err
	}

	srv := api.NewServer(store, p, logger, api.Options{
		Version:        version,
		TopFindings:    cfg.TopFindings,
		PrintFindings:  cfg.MaxPrintFindings,
		PrintDetails:   cfg.MaxSuggestionDetails,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := orDefault(serveAddr, cfg.ListenAddr)
	logger.Info("serving scans", "storage", store.GetStoragePath(), "version", version)
	return srv.ListenAndServe(ctx, addr)
}
