package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/moviecollection/internal/config"
	"github.com/amaumene/moviecollection/internal/domain"
	"github.com/amaumene/moviecollection/internal/handler"
	"github.com/amaumene/moviecollection/internal/repository"
	"github.com/amaumene/moviecollection/internal/storage"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type App struct {
	cfg     *config.Config
	backend storage.Backend
	server  *fiber.App
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := SetupLogging(cfg); err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening backend: %w", err)
	}

	app := &App{
		cfg:     cfg,
		backend: backend,
	}
	app.server = handler.NewServer(handler.NewHTTPHandler(app.newUnitOfWork))
	return app, nil
}

// OpenBackend opens the storage backend selected by cfg.StorageBackend.
// The postgres schema is migrated before the backend is returned.
func OpenBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendBolt:
		backend, err := storage.OpenBolt(cfg.DBPath(), cfg.DBFilePermissions)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"component": "database",
			"backend":   cfg.StorageBackend,
			"path":      cfg.DBPath(),
		}).Info("database opened")
		return backend, nil
	case config.BackendPostgres:
		backend, err := storage.OpenPostgres(ctx, storage.PostgresConfig{
			DSN:             cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConns,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if err := backend.Migrate(ctx); err != nil {
			backend.Close()
			return nil, err
		}
		log.WithFields(log.Fields{
			"component": "database",
			"backend":   cfg.StorageBackend,
			"max_conns": cfg.DBMaxConns,
		}).Info("database connection pool established")
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *App) newUnitOfWork() domain.UnitOfWork {
	return repository.NewUnitOfWork(storage.NewContext(a.backend))
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.startServer(cancel)

	return a.waitForShutdown(ctx)
}

func (a *App) startServer(cancel context.CancelFunc) {
	log.WithFields(log.Fields{
		"component": "server",
		"address":   a.cfg.ServerPort,
	}).Info("http server listening")

	if err := a.server.Listen(a.cfg.ServerPort); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Error("http server stopped")
		cancel()
	}
}

func (a *App) waitForShutdown(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		log.WithField("reason", "context_cancelled").Info("initiating graceful shutdown")
	case sig := <-sigChan:
		log.WithField("signal", sig).Info("received shutdown signal")
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	log.Info("graceful shutdown started")

	if err := a.server.ShutdownWithTimeout(a.cfg.ShutdownTimeout); err != nil {
		log.WithFields(log.Fields{
			"component": "server",
			"error":     err,
		}).Error("http server shutdown failed")
	}

	if err := a.backend.Close(); err != nil {
		log.WithFields(log.Fields{
			"component": "database",
			"error":     err,
		}).Error("database connection close failed")
		return err
	}

	log.Info("graceful shutdown completed")
	return nil
}
