package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"participation-service/internal/adapters/directory/events"
	"participation-service/internal/adapters/directory/users"
	"participation-service/internal/adapters/idempotency"
	pg "participation-service/internal/adapters/storage/postgres"
	"participation-service/internal/platform/config"
	"participation-service/internal/platform/logger"
	"participation-service/internal/platform/tracing"
	"participation-service/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewProvider(tracing.Config{
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   cfg.TraceSampleRate,
		ServiceName:  cfg.AppName,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	userClient, err := users.NewClient(users.Config{
		BaseURL: cfg.UserDirectoryURL,
		APIKey:  cfg.DirectoryAPIKey,
		Timeout: cfg.DirectoryTimeout,
	})
	if err != nil {
		return err
	}
	eventClient, err := events.NewClient(events.Config{
		BaseURL: cfg.EventDirectoryURL,
		APIKey:  cfg.DirectoryAPIKey,
		Timeout: cfg.DirectoryTimeout,
	})
	if err != nil {
		return err
	}
	if !userClient.IsConfigured() || !eventClient.IsConfigured() {
		log.Warn("directory urls not configured; strict lookups will fail", logger.Fields{
			"user_directory":  cfg.UserDirectoryURL,
			"event_directory": cfg.EventDirectoryURL,
		})
	}

	var store idempotency.Store
	if cfg.RedisURL != "" {
		rs, err := idempotency.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	}

	h := router.NewRouter(router.Options{
		Logger:           log,
		Tracer:           tp.Tracer(),
		DB:               db,
		Users:            userClient,
		Events:           eventClient,
		DirectoryTimeout: cfg.DirectoryTimeout,
		ServiceAPIKey:    cfg.ServiceAPIKey,
		Idempotency:      store,
		IdempotencyTTL:   cfg.IdempotencyTTL,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", logger.Fields{"addr": cfg.Addr(), "postgres": db != nil, "redis": store != nil})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openDB devuelve nil sin DB_DSN (store in-memory).
func openDB(cfg config.Config, log logger.Logger) (*sql.DB, error) {
	if cfg.DBDSN == "" {
		log.Warn("DB_DSN not set; using in-memory store", nil)
		return nil, nil
	}
	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := pg.Migrate(db, pg.Up); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info("migrations applied", nil)
	}
	return db, nil
}
