package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestKiosk"
	testPort := 9090
	testLogLevel := "debug"
	testMachine := "kiosk-mall-3"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKIOSK_MACHINE_ID=%s\nFEE_FOREX_PERCENT=7.5\n",
		testAppName, testPort, testLogLevel, testMachine,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testMachine, cfg.Kiosk.MachineID)
	assert.Equal(t, 7.5, cfg.Fees.ForexPercent)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, ScopeProcess, cfg.Kiosk.ActiveScope)
	assert.Equal(t, 60*time.Second, cfg.Kiosk.PaymentTimeout)
	assert.Equal(t, 30*time.Second, cfg.Hub.PingInterval)
	assert.Equal(t, "kiosk.transaction-events", cfg.Kafka.EventTopic)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, int64(10), cfg.Fees.Flat["bill-to-bill"])
	assert.Equal(t, []FeeTier{{Min: 1, Max: 500, Fee: 15}, {Min: 501, Max: 1000, Fee: 25}}, cfg.Fees.EWalletTiers)
	assert.InDelta(t, 58.7656, cfg.Rates.Rates["USD"], 1e-9)
	assert.Equal(t, 100, cfg.Inventory.Initial["PHP_BILL_100"])
	assert.Equal(t, 4, cfg.WorkerPool.Size)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := buildConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	cfg := defaultConfig(t)
	err := cfg.validate()
	assert.NoError(t, err, "Default config should be valid")
}

func TestConfig_Validate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "sqlite" },
			wantErr: "STORE_DRIVER must be one of memory, postgres",
		},
		{
			name: "postgres driver without url",
			mutate: func(c *Config) {
				c.Store.Driver = StoreDriverPostgres
				c.Postgres.URL = ""
			},
			wantErr: "POSTGRES_URL is required",
		},
		{
			name:    "bad scope",
			mutate:  func(c *Config) { c.Kiosk.ActiveScope = "global" },
			wantErr: "KIOSK_ACTIVE_SCOPE must be one of process, session",
		},
		{
			name: "kafka enabled without topic",
			mutate: func(c *Config) {
				c.Kafka.Enabled = true
				c.Kafka.EventTopic = ""
			},
			wantErr: "KAFKA_EVENT_TOPIC is required",
		},
		{
			name: "gap in e-wallet tiers",
			mutate: func(c *Config) {
				c.Fees.EWalletTiers = []FeeTier{{Min: 1, Max: 500, Fee: 15}, {Min: 600, Max: 1000, Fee: 25}}
			},
			wantErr: "FEE_EWALLET_TIERS must be contiguous and ascending",
		},
		{
			name:    "forex percent out of range",
			mutate:  func(c *Config) { c.Fees.ForexPercent = 120 },
			wantErr: "FEE_FOREX_PERCENT must be in [0, 100)",
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Hub.ClientQueueSize = 0 },
			wantErr: "HUB_CLIENT_QUEUE_SIZE must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseTables(t *testing.T) {
	t.Run("tiers are sorted", func(t *testing.T) {
		tiers, err := parseFeeTiers("501-1000:25, 1-500:15")
		require.NoError(t, err)
		assert.Equal(t, int64(1), tiers[0].Min)
		assert.Equal(t, int64(25), tiers[1].Fee)
	})

	t.Run("malformed tier", func(t *testing.T) {
		_, err := parseFeeTiers("1:15")
		assert.Error(t, err)
	})

	t.Run("malformed flat fee", func(t *testing.T) {
		_, err := parseFlatFees("bill-to-bill:ten")
		assert.Error(t, err)
	})

	t.Run("rates upper-cased", func(t *testing.T) {
		rates, err := parseRates("usd:58.5")
		require.NoError(t, err)
		assert.Equal(t, 58.5, rates["USD"])
	})

	t.Run("negative count", func(t *testing.T) {
		_, err := parseCounts("PHP_BILL_20:-1")
		assert.Error(t, err)
	})

	t.Run("empty list", func(t *testing.T) {
		assert.Nil(t, splitList(" , "))
	})
}
