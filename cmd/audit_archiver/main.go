package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/audit_archiver/consumer"
	"github.com/kiosk-transaction-orchestrator/internal/audit_archiver/service"
	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/data/mongo"
	"github.com/kiosk-transaction-orchestrator/internal/logger"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/consumers"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/producers"
	"github.com/kiosk-transaction-orchestrator/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("audit_archiver")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Audit Archiver",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	if !cfg.Kafka.Enabled || !cfg.MongoDB.Enabled {
		log.Error("Audit Archiver requires KAFKA_ENABLED and MONGO_ENABLED")
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	archiveRepo := mongo.NewArchiveRepository(log, mongoDB.Database())
	if err = archiveRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure archive indexes", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var dlq producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlq = dlqProducer
	}

	archivingService, err := service.NewWorkerPoolArchivingService(
		service.NewJournalArchivingService(log, archiveRepo),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to create archiving service", "error", err)
		os.Exit(1)
	}

	handler := consumer.NewJournalEventHandler(log, archivingService, dlq)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.EventTopic, cfg.Kafka.ConsumerGroup)

	errChan := make(chan error, 1)

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.EventTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if serviceErr == nil {
		select {
		case <-kafkaConsumer.Done():
			log.Info("Kafka consumer stopped")
		case <-shutdownCtx.Done():
			log.Warn("Shutdown timeout reached, forcing exit")
		}
	}

	log.Info("Shutting down worker pool", "running_workers", archivingService.Running())
	archivingService.Shutdown()

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Audit Archiver shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Audit Archiver shutdown completed with errors")
	} else {
		log.Info("Audit Archiver shutdown completed successfully")
	}
}
