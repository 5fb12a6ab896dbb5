// Package kms reads signing material from HashiCorp Vault.
package kms

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

const (
	secretCacheKey = "signing_secret"
	secretCacheTTL = 5 * time.Minute
)

// NewVaultClient creates a Vault API client for cfg.Address authenticated
// with cfg.Token. VAULT_* environment variables still apply.
func NewVaultClient(cfg *config.VaultConfig) (*vault.Client, error) {
	vc := vault.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// VaultSecretSource reads the HMAC signing secret from a KV v2 secret.
// VaultSecretSource 从 Vault KV v2 读取签名密钥，并在本地缓存。
type VaultSecretSource struct {
	client *vault.Client
	cfg    *config.VaultConfig
	cache  *cache.Cache
	sf     singleflight.Group
	logger logger.Logger
}

// NewVaultSecretSource creates a new VaultSecretSource.
func NewVaultSecretSource(client *vault.Client, cfg *config.VaultConfig, log logger.Logger) *VaultSecretSource {
	return &VaultSecretSource{
		client: client,
		cfg:    cfg,
		cache:  cache.New(secretCacheTTL, 2*secretCacheTTL),
		logger: log.WithComponent("VaultSecretSource"),
	}
}

// SigningSecret returns the secret stored under cfg.SecretKey at
// cfg.MountPath/cfg.SecretPath. A missing or empty value is a configuration error.
func (s *VaultSecretSource) SigningSecret(ctx context.Context) ([]byte, error) {
	if v, ok := s.cache.Get(secretCacheKey); ok {
		return v.([]byte), nil
	}

	v, err, _ := s.sf.Do(secretCacheKey, func() (interface{}, error) {
		secret, err := s.client.KVv2(s.cfg.MountPath).Get(ctx, s.cfg.SecretPath)
		if err != nil {
			s.logger.Error(ctx, "failed to read signing secret from vault", err,
				logger.String("mount", s.cfg.MountPath),
				logger.String("path", s.cfg.SecretPath),
			)
			return nil, errors.ErrConfiguration("cannot read signing secret from vault").WithCause(err)
		}

		value, ok := secret.Data[s.cfg.SecretKey].(string)
		if !ok || value == "" {
			return nil, errors.ErrConfiguration(fmt.Sprintf("vault secret %s has no %q field", s.cfg.SecretPath, s.cfg.SecretKey))
		}

		key := []byte(value)
		s.cache.SetDefault(secretCacheKey, key)
		s.logger.Info(ctx, "signing secret loaded from vault", logger.String("path", s.cfg.SecretPath))
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

var _ service.SecretSource = (*VaultSecretSource)(nil)

//Personal.AI order the ending
