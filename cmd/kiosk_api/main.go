package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway"
	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/data/memory"
	"github.com/kiosk-transaction-orchestrator/internal/data/mongo"
	"github.com/kiosk-transaction-orchestrator/internal/data/postgres"
	"github.com/kiosk-transaction-orchestrator/internal/device"
	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	"github.com/kiosk-transaction-orchestrator/internal/eventhub"
	"github.com/kiosk-transaction-orchestrator/internal/logger"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/consumers"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/producers"
	"github.com/kiosk-transaction-orchestrator/internal/platform/persistence"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/components"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/consumer"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/journal_relay"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/sweeper"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("kiosk_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Kiosk API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"machine_id", cfg.Kiosk.MachineID,
		"store", cfg.Store.Driver,
	)

	// Event hub and devices
	hub := eventhub.NewHub(cfg.Hub, log)
	monitor := device.NewMonitor(hub, log)
	simulator := device.NewSimulator(monitor, cfg.Kiosk.DispenseUnitDelay, log)
	if cfg.Kiosk.UseMockHardware {
		simulator.PowerOn()
	}
	rates := device.NewStaticRateSource(cfg.Rates.Rates)

	// Transaction registry and journal
	var (
		transactions transaction.Repository
		journalRepo  journal.Repository
		postgresDB   *persistence.PostgresDB
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		transactions = postgres.NewTransactionRepository(log, postgresDB)
		journalRepo = postgres.NewJournalRepository(log, postgresDB)
	default:
		store := memory.NewTransactionStore()
		transactions = store
		journalRepo = store
	}

	// Optional archive read side
	var (
		archiveRepo archive.Repository
		mongoDB     *persistence.MongoDB
	)
	if cfg.MongoDB.Enabled {
		mongoDB, err = persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
		if err != nil {
			log.Error("Failed to initialize MongoDB", "error", err)
			os.Exit(1)
		}
		archiveRepo = mongo.NewArchiveRepository(log, mongoDB.Database())
	}

	engine, err := components.CreateEngine(appCtx, cfg, components.EngineDependencies{
		Transactions: transactions,
		Journal:      journalRepo,
		Devices:      monitor,
		Rates:        rates,
		Dispenser:    simulator,
		Publisher:    hub,
	}, log)
	if err != nil {
		log.Error("Failed to create transaction engine", "error", err)
		os.Exit(1)
	}
	orchestrator := engine.Orchestrator

	hub.SetSnapshot(func() any { return orchestrator.MachineStatus(appCtx) })
	monitor.OnTransition(func(machine.Device, machine.DeviceStatus) {
		orchestrator.PublishStatus(appCtx)
	})

	if err = orchestrator.Recover(appCtx); err != nil {
		log.Error("Failed to recover in-flight transactions", "error", err)
		os.Exit(1)
	}

	// Event stream
	var (
		journalProducer *producers.JournalProducer
		dlqProducer     *producers.DLQProducer
		deviceConsumer  *consumers.KafkaConsumer
	)
	if cfg.Kafka.Enabled {
		journalProducer, err = producers.NewJournalProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize journal Kafka producer", "error", err)
			os.Exit(1)
		}
		dlqProducer, err = producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize DLQ Kafka producer", "error", err)
			os.Exit(1)
		}
		deviceConsumer = consumers.NewKafkaConsumer(log, &cfg.Kafka, cfg.Kafka.DeviceTopic, cfg.Kafka.ConsumerGroup)
	}

	machineService := service.NewMachineService(log, orchestrator, engine.Inventory, engine.Catalog, engine.Policy, rates)
	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Transactions: orchestrator,
		Machine:      machineService,
		Archive:      service.NewArchiveService(log, archiveRepo),
		WebSocket:    hub.ServeWS,
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.NewSweeper(orchestrator, cfg.Kiosk.SweepInterval, log.With("component", "sweeper")).Start(appCtx)
	}()

	if journalProducer != nil {
		relay := journal_relay.NewRelay(&cfg.Outbox, journalRepo, journalProducer, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("Starting journal relay",
				"interval", cfg.Outbox.PollingInterval.String(),
				"batch_size", cfg.Outbox.BatchSize,
			)
			relay.Start(appCtx)
		}()
	}

	if deviceConsumer != nil {
		// A nil *DLQProducer must not reach the handler as a non-nil interface
		var dlq producers.DeadLetterPublisher
		if dlqProducer != nil {
			dlq = dlqProducer
		}
		handler := consumer.NewDeviceSignalHandler(log.With("component", "device_signals"), orchestrator, monitor, dlq)

		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DeviceTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := deviceConsumer.Subscribe(appCtx, handler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
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

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the background loops go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}
	hub.Shutdown()

	cancelAppCtx()

	// In-flight dispenses finish before their rows are abandoned
	engine.Pool.Shutdown()

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		if deviceConsumer != nil {
			<-deviceConsumer.Done()
		}
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if deviceConsumer != nil {
		if err = deviceConsumer.Close(); err != nil {
			log.Error("Error closing Kafka consumer", "error", err)
		}
	}
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if journalProducer != nil {
		if err = journalProducer.Close(); err != nil {
			log.Error("Error closing journal Kafka producer", "error", err)
		}
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if serviceErr != nil {
		log.Error("Kiosk API shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Kiosk API shutdown completed with errors")
	} else {
		log.Info("Kiosk API shutdown completed successfully")
	}
}
