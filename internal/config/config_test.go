package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("TOKENLIFE_JWT_SECRET_KEY", "env-secret")

	path := writeConfig(t, "server:\n  environment: test\n")
	cfg, err := LoadConfig(logger.NewNoopLogger(), path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.SecretKey)
	assert.Equal(t, string(constants.AlgorithmHS256), cfg.JWT.Algorithm)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, constants.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, constants.AuditSinkLog, cfg.Audit.Sink)
	assert.Equal(t, "test", cfg.Server.Environment)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.HTTPAddress())
}

func TestLoadConfig_BareEnvAliases(t *testing.T) {
	t.Setenv("SECRET_KEY", "legacy-secret")
	t.Setenv("ALGORITHM", "HS512")

	path := writeConfig(t, "log:\n  level: debug\n")
	cfg, err := LoadConfig(logger.NewNoopLogger(), path)
	require.NoError(t, err)

	assert.Equal(t, "legacy-secret", cfg.JWT.SecretKey)
	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret_key: file-secret
  access_token_ttl: 5m
  refresh_token_ttl: 24h
database:
  driver: sqlite
  sqlite_path: /tmp/tokenlife.db
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
audit:
  sink: kafka
`)
	cfg, err := LoadConfig(logger.NewNoopLogger(), path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, constants.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/tokenlife.db", cfg.Database.GetDSN())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, constants.AuditSinkKafka, cfg.Audit.Sink)
}

func TestLoadConfig_MissingSecretIsConfigurationError(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	_, err := LoadConfig(logger.NewNoopLogger(), path)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, constants.ErrCodeConfiguration))
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	_, err := LoadConfig(logger.NewNoopLogger(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, constants.ErrCodeConfiguration))
}

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: constants.DriverPostgres},
		JWT: JWTConfig{
			SecretKey:       "s3cr3t",
			Algorithm:       string(constants.AlgorithmHS256),
			AccessTokenTTL:  10 * time.Minute,
			RefreshTokenTTL: 48 * time.Hour,
		},
		Audit: AuditConfig{Sink: constants.AuditSinkLog},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"vault replaces static secret", func(c *Config) {
			c.JWT.SecretKey = ""
			c.Vault = VaultConfig{Enabled: true, Address: "http://vault:8200", SecretPath: "tokenlife/jwt"}
		}, false},
		{"vault without path", func(c *Config) {
			c.Vault = VaultConfig{Enabled: true, Address: "http://vault:8200"}
		}, true},
		{"asymmetric algorithm", func(c *Config) { c.JWT.Algorithm = "RS256" }, true},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTokenTTL = 0 }, true},
		{"access outlives refresh", func(c *Config) { c.JWT.AccessTokenTTL = 72 * time.Hour }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.Database.Driver = constants.DriverSQLite }, true},
		{"unknown audit sink", func(c *Config) { c.Audit.Sink = "syslog" }, true},
		{"kafka sink without brokers", func(c *Config) { c.Audit.Sink = constants.AuditSinkKafka }, true},
		{"consumer without topic", func(c *Config) {
			c.Kafka = KafkaConfig{ConsumerEnabled: true, Brokers: []string{"k:9092"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, constants.ErrCodeConfiguration))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
