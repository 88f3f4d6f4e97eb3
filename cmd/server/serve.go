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

	"github.com/iliyamo/rentals-marketplace/internal/config"
	"github.com/iliyamo/rentals-marketplace/internal/database"
	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/queue"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/router"
	"github.com/iliyamo/rentals-marketplace/internal/service"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
	"github.com/iliyamo/rentals-marketplace/internal/verify"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.WithComponent("server")

	dsn, err := cfg.DSN()
	if err != nil {
		return err
	}
	db, err := database.Open(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	files, err := storage.NewLocalStore(cfg.Upload.Dir, cfg.MaxUploadBytes())
	if err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}

	var publisher *queue.Publisher
	if cfg.Notify.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.Notify.RabbitURL, cfg.Notify.Queue, cfg.Notify.BufferSize)
		publisher.Start(ctx)
	} else {
		log.Warn("RABBITMQ_URL not set, delivery notifications disabled")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	listings := repository.NewListingRepo(db)
	auth := service.NewAuthService(repository.NewRenterRepo(db), repository.NewSessionRepo(db), files,
		service.AuthOptions{
			Secret:         cfg.Session.Secret,
			TTL:            cfg.Session.TTL,
			Cost:           cfg.BcryptCost,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		})
	inventory := service.NewInventoryService(listings, repository.NewRequestRepo(db, listings),
		files, publisher, cfg.MaxUploadBytes())
	customers := service.NewCustomerService(repository.NewCustomerRepo(db), files,
		verify.NewMockVerifier(), cfg.MaxUploadBytes())

	e := router.New(router.Deps{
		Config:    cfg,
		Redis:     rdb,
		Auth:      auth,
		Inventory: inventory,
		Customers: customers,
		ImagesDir: files.ImagesDir(),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}
	if publisher != nil {
		select {
		case <-publisher.Done():
		case <-shutdownCtx.Done():
		}
	}
	return nil
}
