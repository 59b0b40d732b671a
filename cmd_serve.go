package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"captioncraft/ai"
	"captioncraft/server"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr      string
	origins   string
	rateLimit string
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the CaptionCraft HTTP API",
		Long: `Run the CaptionCraft HTTP API backed by the configured model provider.

Endpoints:
  GET  /api/health    liveness check
  POST /api/caption   multipart form with "image" and optional "tone"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default $CAPTIONCRAFT_SERVER_ADDR or :8000)")
	cmd.Flags().StringVar(&f.origins, "origins", "", "comma-separated CORS origins, * for any")
	cmd.Flags().StringVar(&f.rateLimit, "rate-limit", "", `per-client limit such as "10/minute"; "off" disables`)
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f *serveFlags) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.origins != "" {
		cfg.Server.AllowedOrigins = f.origins
	}
	if f.rateLimit != "" {
		cfg.Server.RateLimit = f.rateLimit
	}
	if cfg.Server.RateLimit == "off" {
		cfg.Server.RateLimit = ""
	}

	logger, _, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS", "error", err)
	}
	defer undo()

	if err := cfg.CheckProvider(); err != nil {
		return err
	}
	captioner, err := ai.New(cfg.Provider, logger)
	if err != nil {
		return err
	}

	api, err := server.New(captioner, server.Options{
		AllowedOrigins: cfg.Origins(),
		RateLimit:      cfg.Server.RateLimit,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("captioncraft listening",
			"addr", cfg.Server.Addr,
			"provider", cfg.Provider.Provider,
			"rate_limit", cfg.Server.RateLimit,
			"version", version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
