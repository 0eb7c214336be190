package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/pflag"

	"costbook/internal/api"
	"costbook/internal/config"
	"costbook/internal/logging"
	"costbook/pkg/costbook"
)

type serverFlags struct {
	configPath   string
	dataDir      string
	host         string
	port         int
	baseCurrency string
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs, flags := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(fs, flags, cfg); err != nil {
		return err
	}

	logDir, err := cfg.GetLogDir()
	if err != nil {
		return fmt.Errorf("resolve log dir: %w", err)
	}
	logger, writer, err := logging.NewLogger(logDir, logging.Options{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		RetentionDays: cfg.Log.RetentionDays,
		Stdout:        stdout,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	dbPath, err := cfg.GetDBPath()
	if err != nil {
		return fmt.Errorf("resolve db path: %w", err)
	}
	core, err := costbook.OpenWithOptions(costbook.Options{
		DBPath:         dbPath,
		Logger:         logger,
		BaseCurrency:   cfg.BaseCurrency,
		MinHoldingDays: cfg.MinHoldingDays,
		CacheTTL:       cfg.CacheTTL,
		Workers:        cfg.Workers,
	})
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	logger.Info("core ready", "db_path", dbPath, "base_currency", core.BaseCurrency())
	return serve(ctx, newServer(cfg.Addr(), core), logger)
}

func newFlagSet() (*pflag.FlagSet, *serverFlags) {
	flags := &serverFlags{}
	fs := pflag.NewFlagSet("costbook-server", pflag.ContinueOnError)
	fs.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	fs.StringVar(&flags.dataDir, "data-dir", "", "Directory for storing database and application data")
	fs.StringVar(&flags.host, "host", "", "Host to bind the server to")
	fs.IntVarP(&flags.port, "port", "p", 0, "Port to run the server on")
	fs.StringVar(&flags.baseCurrency, "base-currency", "", "Currency stored FX rates are quoted against")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	return fs, flags
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(fs *pflag.FlagSet, flags *serverFlags, cfg *config.Config) error {
	if fs.Changed("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if fs.Changed("host") {
		cfg.Host = flags.host
	}
	if fs.Changed("port") {
		cfg.Port = flags.port
	}
	if fs.Changed("base-currency") {
		cfg.BaseCurrency = flags.baseCurrency
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	return cfg.Validate()
}

func newServer(addr string, core *costbook.Core) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           middleware.Compress(5)(api.NewRouter(core)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serve runs server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	logger.Info("server starting", "addr", server.Addr)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
