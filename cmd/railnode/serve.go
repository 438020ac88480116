package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noko0413/Railnode/internal/httpapi"
	"github.com/noko0413/Railnode/pkg/store"
	"github.com/noko0413/Railnode/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP server, binding CRUD routes for every configured entity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides addr from the config file)")
	serveCmd.Flags().BoolVar(&flagDev, "dev", false, "use human-readable development logging")
}

func runServe() error {
	logger, err := newLogger(flagDev)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}

	registry, err := types.NewRegistry(cfg.Entities...)
	if err != nil {
		return fmt.Errorf("load entities: %w", err)
	}

	adapter, err := store.New(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("create adapter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := adapter.Init(ctx); err != nil {
		return fmt.Errorf("init adapter: %w", err)
	}
	defer func() {
		if err := adapter.Dispose(context.Background()); err != nil {
			log.Warnw("adapter dispose failed", "error", err)
		}
	}()

	api, err := httpapi.New(registry, adapter, log)
	if err != nil {
		return fmt.Errorf("bind routes: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", cfg.Addr, "storage", cfg.Storage.Storage)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
