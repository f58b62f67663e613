package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/api"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local HTTP API over the operator's browser tab",
	Long: `Starts Chrome (or attaches to the configured one) and serves:

  GET  /health
  GET  /v1/studies
  POST /v1/scrape    {"dryRun": bool, "noImages": bool}
  POST /v1/history   {"confirm": bool, "studyType": "carotid|aorta|left_leg|right_leg"}
  GET  /v1/runs
  GET  /v1/runs/{run_id}/events

Runs are serialized; a request made while another run holds the tab gets 409.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (overrides serve.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.Serve.Addr = serveFlags.addr
	}
	logger := newLogger(cfg.LogLevel)
	ctx := cmd.Context()

	rt, err := openRuntime(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           api.New(rt.sess, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("serve: listening", "addr", cfg.Serve.Addr, "service", rt.reports.BaseURL())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("serve: shutdown", "error", err)
	}
	logger.Info("serve: stopped")
	return nil
}
