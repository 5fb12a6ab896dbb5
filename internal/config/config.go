package config

import (
	"fmt"
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
)

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Vault     VaultConfig     `mapstructure:"vault"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCEnabled     bool          `mapstructure:"grpc_enabled"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPAddress returns host:port for the HTTP listener.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddress returns host:port for the gRPC listener.
func (c *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// GetDSN returns the connection string for the configured driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == constants.DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Mode           string        `mapstructure:"mode"`
	Addresses      []string      `mapstructure:"addresses"`
	SentinelMaster string        `mapstructure:"sentinel_master"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
	SecretKey  string `mapstructure:"secret_key_field"`
}

type JWTConfig struct {
	SecretKey       string        `mapstructure:"secret_key"`
	Algorithm       string        `mapstructure:"algorithm"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
	CookieDomain    string        `mapstructure:"cookie_domain"`
}

type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	LoginLimit    int64         `mapstructure:"login_limit"`
	Window        time.Duration `mapstructure:"window"`
	LocalFallback bool          `mapstructure:"local_fallback"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	AuditTopic      string        `mapstructure:"audit_topic"`
	RevocationTopic string        `mapstructure:"revocation_topic"`
	ConsumerGroup   string        `mapstructure:"consumer_group"`
	ConsumerEnabled bool          `mapstructure:"consumer_enabled"`
	RequiredAcks    int           `mapstructure:"required_acks"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

type AuditConfig struct {
	Sink string `mapstructure:"sink"`
	// HMACKey signs events published to Kafka; empty disables signing.
	HMACKey string `mapstructure:"hmac_key"`
}

// Validate checks for essential configuration values. Every failure is a
// configuration error and must stop the process before it serves traffic.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" && !c.Vault.Enabled {
		return errors.ErrConfiguration("jwt.secret_key is required (or enable vault)")
	}

	switch constants.JWTAlgorithm(c.JWT.Algorithm) {
	case constants.AlgorithmHS256, constants.AlgorithmHS384, constants.AlgorithmHS512:
	default:
		return errors.ErrConfiguration(fmt.Sprintf("unsupported jwt.algorithm %q", c.JWT.Algorithm))
	}

	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return errors.ErrConfiguration("token lifetimes must be positive")
	}
	if c.JWT.AccessTokenTTL >= c.JWT.RefreshTokenTTL {
		return errors.ErrConfiguration("jwt.access_token_ttl must be shorter than jwt.refresh_token_ttl")
	}

	switch c.Database.Driver {
	case constants.DriverPostgres:
	case constants.DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.ErrConfiguration("database.sqlite_path is required for the sqlite driver")
		}
	default:
		return errors.ErrConfiguration(fmt.Sprintf("unsupported database.driver %q", c.Database.Driver))
	}

	switch c.Audit.Sink {
	case constants.AuditSinkLog, constants.AuditSinkDatabase:
	case constants.AuditSinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.AuditTopic == "" {
			return errors.ErrConfiguration("kafka audit sink needs kafka.brokers and kafka.audit_topic")
		}
	default:
		return errors.ErrConfiguration(fmt.Sprintf("unsupported audit.sink %q", c.Audit.Sink))
	}

	if c.Kafka.ConsumerEnabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.RevocationTopic == "") {
		return errors.ErrConfiguration("session revocation consumer needs kafka.brokers and kafka.revocation_topic")
	}

	if c.Vault.Enabled && (c.Vault.Address == "" || c.Vault.SecretPath == "") {
		return errors.ErrConfiguration("vault.address and vault.secret_path are required when vault is enabled")
	}

	return nil
}

//Personal.AI order the ending
