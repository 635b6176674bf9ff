package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/config"
	"github.com/unclebandit/restaurant-crm-backend/internal/db"
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

	log, err := logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat, "restaurant-crm-worker")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !cfg.Events.Enabled {
		log.Fatal("worker needs EVENTS_ENABLED=true and AMQP_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer conn.Close()

	q, err := queue.DialAMQP(cfg.Events.AMQPURL, log)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer q.Close()

	if err := startWorker(q, repository.NewStore(conn, log), cfg.Events.Topic, log); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for messages", zap.String("topic", cfg.Events.Topic))
	<-ctx.Done()
	log.Info("worker stopping")
}

func startWorker(q queue.Queue, repo service.DigestRepository, topic string, log *zap.Logger) error {
	return service.NewDigestWorker(repo, log).Start(q, topic)
}
