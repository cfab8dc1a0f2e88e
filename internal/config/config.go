// Package config provides configuration structures and validation for the kiosk services.
// It handles environment-based configuration for the HTTP/WebSocket server, the
// transaction store, the event stream, fee policy and the simulated hardware.
package config

import (
	"errors"
	"strings"
	"time"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	ScopeProcess = "process"
	ScopeSession = "session"

	FeeModeAdded    = "added"
	FeeModeDeducted = "deducted"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Store       StoreConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Kiosk       KioskConfig
	Hub         HubConfig
	Fees        FeeConfig
	Rates       RateConfig
	Inventory   InventoryConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
	CORSOrigins     []string
}

// StoreConfig selects the transaction registry backend
type StoreConfig struct {
	Driver string // memory or postgres
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           string
	EventTopic        string // Transaction journal stream
	DeviceTopic       string // Device adapter signals
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	Enabled         bool
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// OutboxConfig drives the journal relay
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size           int
	ReleaseTimeout time.Duration // How long shutdown waits for in-flight work
}

// KioskConfig contains machine-level transaction policy
type KioskConfig struct {
	MachineID         string
	ActiveScope       string // process or session
	PaymentTimeout    time.Duration
	TopUpTimeout      time.Duration
	SweepInterval     time.Duration
	SimulationEnabled bool
	UseMockHardware   bool
	DispenseUnitDelay time.Duration
}

// HubConfig contains WebSocket hub settings
type HubConfig struct {
	PingInterval    time.Duration
	PongGrace       time.Duration
	ClientQueueSize int
	WriteTimeout    time.Duration
}

// FeeTier is a contiguous amount range mapped to a flat fee.
type FeeTier struct {
	Min int64
	Max int64
	Fee int64
}

// FeeConfig contains the fee policy tables
type FeeConfig struct {
	Flat         map[string]int64 // service type -> flat fee
	EWalletTiers []FeeTier
	ForexPercent float64
	Mode         string // added or deducted
}

// RateConfig contains static exchange rates, foreign currency -> PHP
type RateConfig struct {
	Rates map[string]float64
}

// InventoryConfig contains dispenser seed counts and alert thresholds
type InventoryConfig struct {
	Initial         map[string]int // denomination key -> count
	LowBillCount    int
	LowCoinCount    int
	StorageCapacity int
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	default:
		validationErrors = append(validationErrors, "STORE_DRIVER must be one of memory, postgres")
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
		}
		if c.Kafka.EventTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_EVENT_TOPIC is required")
		}
		if c.Kafka.ConsumerGroup == "" {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
		}
		if c.Kafka.MinBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
		}
		if c.Kafka.MaxBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
		}
		if c.Kafka.MaxWait <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
		}
	}

	if c.MongoDB.Enabled {
		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
	}

	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Kiosk.MachineID == "" {
		validationErrors = append(validationErrors, "KIOSK_MACHINE_ID is required")
	}
	if c.Kiosk.ActiveScope != ScopeProcess && c.Kiosk.ActiveScope != ScopeSession {
		validationErrors = append(validationErrors, "KIOSK_ACTIVE_SCOPE must be one of process, session")
	}
	if c.Kiosk.PaymentTimeout <= 0 {
		validationErrors = append(validationErrors, "KIOSK_PAYMENT_TIMEOUT must be greater than 0")
	}
	if c.Kiosk.TopUpTimeout <= 0 {
		validationErrors = append(validationErrors, "KIOSK_TOPUP_TIMEOUT must be greater than 0")
	}
	if c.Kiosk.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "KIOSK_SWEEP_INTERVAL must be greater than 0")
	}

	if c.Hub.PingInterval <= 0 {
		validationErrors = append(validationErrors, "HUB_PING_INTERVAL must be greater than 0")
	}
	if c.Hub.PongGrace <= 0 {
		validationErrors = append(validationErrors, "HUB_PONG_GRACE must be greater than 0")
	}
	if c.Hub.ClientQueueSize <= 0 {
		validationErrors = append(validationErrors, "HUB_CLIENT_QUEUE_SIZE must be greater than 0")
	}

	if c.Fees.ForexPercent < 0 || c.Fees.ForexPercent >= 100 {
		validationErrors = append(validationErrors, "FEE_FOREX_PERCENT must be in [0, 100)")
	}
	if c.Fees.Mode != FeeModeAdded && c.Fees.Mode != FeeModeDeducted {
		validationErrors = append(validationErrors, "FEE_MODE must be one of added, deducted")
	}
	for i := 1; i < len(c.Fees.EWalletTiers); i++ {
		if c.Fees.EWalletTiers[i].Min != c.Fees.EWalletTiers[i-1].Max+1 {
			validationErrors = append(validationErrors, "FEE_EWALLET_TIERS must be contiguous and ascending")
			break
		}
	}
	for currency, rate := range c.Rates.Rates {
		if rate <= 0 {
			validationErrors = append(validationErrors, "RATES entry "+currency+" must be greater than 0")
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
