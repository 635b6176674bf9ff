// cmd/server/main.go
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/config"
	"github.com/unclebandit/restaurant-crm-backend/internal/controller"
	"github.com/unclebandit/restaurant-crm-backend/internal/db"
	"github.com/unclebandit/restaurant-crm-backend/internal/handler"
	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
	"github.com/unclebandit/restaurant-crm-backend/internal/queue"
	"github.com/unclebandit/restaurant-crm-backend/internal/repository"
	"github.com/unclebandit/restaurant-crm-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat, "restaurant-crm-server")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(conn, "up", log); err != nil {
			return err
		}
	}

	store := repository.NewStore(conn, log)

	events, closeEvents, err := newEventQueue(cfg.Events, store, log)
	if err != nil {
		return err
	}
	defer closeEvents()

	customerService := service.NewCustomerService(store, events, log)
	customerService.Topic = cfg.Events.Topic

	customerController := controller.NewCustomerController(customerService, log)
	customerController.Export = handler.NewExportHandler(customerService, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health(conn))
	customerController.Routes(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("addr", srv.Addr))
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEventQueue returns RabbitMQ when events are enabled. Otherwise events go
// to an in-process queue with the digest worker subscribed.
func newEventQueue(cfg config.EventsConfig, store repository.StoreInterface, log *zap.Logger) (queue.Queue, func(), error) {
	if cfg.Enabled {
		q, err := queue.DialAMQP(cfg.AMQPURL, log)
		if err != nil {
			return nil, nil, err
		}
		return q, func() {
			if err := q.Close(); err != nil {
				log.Warn("failed to close amqp queue", zap.Error(err))
			}
		}, nil
	}

	q := queue.NewInMemoryQueue(log)
	if err := service.NewDigestWorker(store, log).Start(q, cfg.Topic); err != nil {
		return nil, nil, err
	}
	return q, q.Wait, nil
}
