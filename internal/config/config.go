package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
}

// BinlogConfig is used by ledgerwatch when it tails the MySQL binlog.
type BinlogConfig struct {
	ServerID uint32
	User     string
	Password string
}

type Config struct {
	HTTPPort           int
	LogLevel           string
	CORSAllowedOrigins []string

	DB             DBConfig
	MigrationsPath string

	EventsEnabled          bool
	KafkaBrokerURL         string
	KafkaLedgerEventsTopic string
	KafkaConsumerGroup     string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	Binlog BinlogConfig
}

// LoadConfig reads the environment, after merging any of the given .env files
// that exist. Variables already present in the environment win over the files.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	cfg := &Config{}

	cfg.HTTPPort = getEnvAsInt("HTTP_PORT", 8080)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	cfg.DB.Driver = strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverPostgres))
	cfg.DB.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DB.Port = getEnvAsInt("DB_PORT", defaultPort(cfg.DB.Driver))
	cfg.DB.User = getEnvOrDefault("DB_USER", "postgres")
	cfg.DB.Password = getEnvOrDefault("DB_PASSWORD", "postgres")
	cfg.DB.Name = getEnvOrDefault("DB_NAME", "accounts_transactions")
	cfg.DB.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")
	cfg.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 20)
	cfg.DB.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DB.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	cfg.DB.ConnectRetries = getEnvAsInt("DB_CONNECT_RETRIES", 10)
	cfg.DB.RetryDelay = getEnvAsDuration("DB_CONNECT_RETRY_DELAY", 5*time.Second)
	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations/"+cfg.DB.Driver)

	cfg.EventsEnabled = getEnvAsBool("EVENTS_ENABLED", false)
	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaLedgerEventsTopic = getEnvOrDefault("KAFKA_LEDGER_EVENTS_TOPIC", "ledger_events")
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "ledgerwatch")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 5*time.Second)
	cfg.OutboxBatchSize = getEnvAsInt("OUTBOX_BATCH_SIZE", 50)
	cfg.OutboxMaxAttempts = getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 10)

	cfg.Binlog.ServerID = uint32(getEnvAsInt("BINLOG_SERVER_ID", 101))
	cfg.Binlog.User = getEnvOrDefault("BINLOG_USER", cfg.DB.User)
	cfg.Binlog.Password = getEnvOrDefault("BINLOG_PASSWORD", cfg.DB.Password)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: must be %q or %q", c.DB.Driver, DriverPostgres, DriverMySQL)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		return fmt.Errorf("invalid DB_PORT: %d", c.DB.Port)
	}
	if c.EventsEnabled {
		if c.KafkaLedgerEventsTopic == "" {
			return errors.New("KAFKA_LEDGER_EVENTS_TOPIC is required when EVENTS_ENABLED is set")
		}
		if c.OutboxPollInterval <= 0 {
			return fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %s", c.OutboxPollInterval)
		}
		if c.OutboxBatchSize <= 0 {
			return fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %d", c.OutboxBatchSize)
		}
	}
	return nil
}

// GetDBConnectionString returns the DSN understood by the configured driver.
func (c *Config) GetDBConnectionString() string {
	if c.DB.Driver == DriverMySQL {
		// clientFoundRows makes RowsAffected count matched rows, like Postgres does.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&clientFoundRows=true",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	if c.DB.Driver == DriverMySQL {
		return fmt.Sprintf("mysql://%s:%s@tcp(%s:%d)/%s?multiStatements=true",
			c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return splitList(c.KafkaBrokerURL)
}

func defaultPort(driver string) int {
	if driver == DriverMySQL {
		return 3306
	}
	return 5432
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnvOrDefault(key, strconv.FormatBool(defaultValue))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
