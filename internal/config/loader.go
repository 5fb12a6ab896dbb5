package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. TOKENLIFE_JWT_SECRET_KEY.
const EnvPrefix = "TOKENLIFE"

// LoadConfig loads the configuration from file and environment variables.
// An empty configFile searches /etc/tokenlife/ and the working directory for config.yaml.
func LoadConfig(log logger.Logger, configFile string) (*Config, error) {
	v := newViper(configFile)
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	log.Info(context.Background(), "Configuration loaded",
		logger.String("config_file", v.ConfigFileUsed()),
		logger.String("environment", cfg.Server.Environment),
		logger.String("database_driver", cfg.Database.Driver),
		logger.String("audit_sink", cfg.Audit.Sink),
	)
	return cfg, nil
}

// Watch re-reads the configuration file whenever it changes and hands every
// valid new configuration to onChange. Invalid edits are logged and ignored.
func Watch(log logger.Logger, configFile string, onChange func(*Config)) error {
	v := newViper(configFile)
	if err := readConfigFile(v, configFile); err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn(context.Background(), "Ignoring invalid configuration change",
				logger.String("file", e.Name),
				logger.Err(err),
			)
			return
		}
		log.Info(context.Background(), "Configuration reloaded", logger.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/tokenlife/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare names are what existing deployments already export.
	_ = v.BindEnv("jwt.secret_key", EnvPrefix+"_JWT_SECRET_KEY", "SECRET_KEY")
	_ = v.BindEnv("jwt.algorithm", EnvPrefix+"_JWT_ALGORITHM", "ALGORITHM")

	return v
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			return nil
		}
		return errors.ErrConfiguration(fmt.Sprintf("failed to read config file: %v", err)).WithCause(err)
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrConfiguration("failed to unmarshal config").WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.grpc_enabled", false)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8000"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.driver", constants.DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "tokenlife")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "tokenlife.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.slow_query", 200*time.Millisecond)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", "standalone")
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.sentinel_master", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://127.0.0.1:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "tokenlife/jwt")
	v.SetDefault("vault.secret_key_field", "secret_key")

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", string(constants.DefaultJWTAlgorithm))
	v.SetDefault("jwt.access_token_ttl", constants.AccessTokenDefaultTTL)
	v.SetDefault("jwt.refresh_token_ttl", constants.RefreshTokenDefaultTTL)
	v.SetDefault("jwt.cookie_secure", false)
	v.SetDefault("jwt.cookie_domain", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.login_limit", constants.DefaultLoginRateLimitPerMinute)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.local_fallback", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "tokenlife")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.audit_topic", "tokenlife.auth-events")
	v.SetDefault("kafka.revocation_topic", "tokenlife.session-revocations")
	v.SetDefault("kafka.consumer_group", "tokenlife")
	v.SetDefault("kafka.consumer_enabled", false)
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", time.Second)
	v.SetDefault("kafka.write_timeout", 10*time.Second)

	v.SetDefault("audit.sink", constants.AuditSinkLog)
	v.SetDefault("audit.hmac_key", "")
}

//Personal.AI order the ending
