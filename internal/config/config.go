package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// Timezone is the IANA zone calendar days, months and years are counted in.
	Timezone string `mapstructure:"timezone"`
	// WorkerID seeds the snowflake generator; unique per running instance.
	WorkerID int64 `mapstructure:"worker_id"`
}

// Location resolves Timezone. Blank means UTC.
func (c AppConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type DatabaseConfig struct {
	Driver        string        `mapstructure:"driver"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Database      string        `mapstructure:"database"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	LogLevel      string        `mapstructure:"log_level"`
	ReadyInterval time.Duration `mapstructure:"ready_interval"`
	ReadyAttempts int           `mapstructure:"ready_attempts"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	RecordCreated string `mapstructure:"record_created"`
}

// CacheConfig controls the dashboard result memoization.
type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type OutboxConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxRetryCount int           `mapstructure:"max_retry_count"`
	Retention     time.Duration `mapstructure:"retention"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`
}

type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConfigurationError reports a missing or invalid operational parameter.
// It is fatal: the process must not start serving traffic.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// EnvPrefix is prepended to every environment override, e.g. VLAKE_AUTH_API_KEY.
const EnvPrefix = "VLAKE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Integração Estapar - Data Lake")
	v.SetDefault("app.version", "0.1.6")
	v.SetDefault("app.environment", "production")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("app.worker_id", 1)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "dashboard")
	v.SetDefault("database.sqlite_path", "db.sqlite3")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.ready_interval", 2*time.Second)
	v.SetDefault("database.ready_attempts", 30)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.record_created", "validation-record-created")

	v.SetDefault("cache.ttl", 1200*time.Second)
	v.SetDefault("cache.size", 512)

	v.SetDefault("outbox.interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_retry_count", 5)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.purge_interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the YAML file at configPath (optional; an empty path or a missing
// file falls back to defaults) and applies VLAKE_* environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	if err := v.BindEnv("auth.api_key"); err != nil {
		return nil, err
	}
	for _, key := range []string{"database.user", "database.password", "redis.password", "redis.db"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parameters the service cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.APIKey) == "" {
		return &ConfigurationError{Field: "auth.api_key", Reason: "is required"}
	}
	if _, err := c.App.Location(); err != nil {
		return &ConfigurationError{Field: "app.timezone", Reason: fmt.Sprintf("unknown zone %q", c.App.Timezone)}
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return &ConfigurationError{Field: "database.driver", Reason: fmt.Sprintf("unsupported value %q", c.Database.Driver)}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return &ConfigurationError{Field: "kafka.brokers", Reason: "must not be empty when kafka is enabled"}
	}
	if c.Cache.TTL <= 0 {
		return &ConfigurationError{Field: "cache.ttl", Reason: "must be positive"}
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN for the configured server. Times are
// read and written in loc, so DATE() on the server buckets by loc's days.
func (c DatabaseConfig) MySQLDSN(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		url.QueryEscape(loc.String()),
	)
}
