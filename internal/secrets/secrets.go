// Package secrets resolves credentials from the environment or Azure Key Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source is where secrets are read from
type Source string

const (
	SourceEnvironment Source = "environment"
	SourceVault       Source = "vault"
	// SourceAuto uses the environment in development and the vault elsewhere
	SourceAuto Source = "auto"
)

var ErrNotFound = errors.New("secret not found")

// Getter reads one secret by name
type Getter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type envGetter struct{}

func (envGetter) GetSecret(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrNotFound, name)
	}
	return value, nil
}

// Cache memoizes a Getter for ttl. Failed lookups are not cached.
type Cache struct {
	getter  Getter
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cachedSecret
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

func NewCache(getter Getter, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{getter: getter, ttl: ttl, now: time.Now, entries: map[string]cachedSecret{}}
}

func (c *Cache) GetSecret(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	if entry, ok := c.entries[name]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	c.mu.Unlock()

	value, err := c.getter.GetSecret(ctx, name)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[name] = cachedSecret{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return value, nil
}

// Clear drops every cached secret
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[string]cachedSecret{}
	c.mu.Unlock()
}

// ProviderConfig configures NewProvider
type ProviderConfig struct {
	Source       Source
	VaultName    string
	Environment  string // development, staging, production
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Provider reads secrets from its source. Environment variables given to
// GetSecretOrEnv always take precedence.
type Provider struct {
	source Source
	getter Getter
	logger *zap.Logger
}

// ResolveSource turns SourceAuto into a concrete source for environment
func ResolveSource(source Source, environment string) Source {
	if source != SourceAuto {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	var getter Getter
	switch source {
	case SourceEnvironment:
		getter = envGetter{}
	case SourceVault:
		vault, err := NewVaultClient(cfg.VaultName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		getter = vault
		if cfg.CacheEnabled {
			getter = NewCache(vault, cfg.CacheTTL)
		}
	default:
		return nil, fmt.Errorf("unknown secret source: %s", cfg.Source)
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment))
	return NewProviderWithGetter(source, getter, logger), nil
}

// NewProviderWithGetter builds a provider over an existing Getter
func NewProviderWithGetter(source Source, getter Getter, logger *zap.Logger) *Provider {
	return &Provider{source: source, getter: getter, logger: logger}
}

func (p *Provider) Source() Source {
	return p.source
}

func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	return p.getter.GetSecret(ctx, name)
}

// GetSecretOrEnv returns envName when set, otherwise the secret name from the source
func (p *Provider) GetSecretOrEnv(ctx context.Context, name, envName string) (string, error) {
	if value := os.Getenv(envName); value != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return value, nil
	}
	return p.GetSecret(ctx, name)
}

// Binding maps a secret and its environment override onto a config field
type Binding struct {
	Secret string
	Env    string
	Target *string
}

// Apply resolves every binding and writes found values to their targets.
// Targets are left untouched when neither source has a value. It returns the
// names of the secrets that were applied.
func (p *Provider) Apply(ctx context.Context, bindings []Binding) []string {
	var applied []string
	for _, b := range bindings {
		value, err := p.GetSecretOrEnv(ctx, b.Secret, b.Env)
		if err != nil || value == "" {
			if err != nil && !errors.Is(err, ErrNotFound) {
				p.logger.Warn("Failed to resolve secret", zap.String("secret_name", b.Secret), zap.Error(err))
			}
			continue
		}
		*b.Target = value
		applied = append(applied, b.Secret)
	}
	return applied
}
