package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fieldops/fieldservice-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	DataWarehouse DataWarehouseConfig
	Auth          AuthConfig
	ApiKey        ApiKeyConfig
	Storage       StorageConfig
	Secrets       SecretsConfig
	Logging       LoggingConfig
	Server        ServerConfig
	CORS          CORSConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	Jobs          JobsConfig
	Tracing       TracingConfig
	Financing     FinancingConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	// AutoMigrate runs gorm AutoMigrate on startup. Intended for local development only;
	// other environments apply the goose migrations through cmd/migrate.
	AutoMigrate bool
}

// DataWarehouseConfig holds configuration for the ERP data warehouse (MS SQL Server).
// The connection is optional and read-only; it is used to import customers.
type DataWarehouseConfig struct {
	Enabled         bool
	URL             string // host:port/database
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
	QueryTimeout    int // seconds
	// CustomerTable is the ERP view customers are imported from
	CustomerTable string
}

// AuthConfig holds settings for validating tokens issued by the hosted auth platform
type AuthConfig struct {
	// JWTSecret is the shared HS256 signing secret of the auth platform
	JWTSecret string
	Issuer    string
	Audience  string
	// RoleClaim is the claim the user's application role is read from
	RoleClaim string
	// DefaultRole is applied when the token carries no role claim
	DefaultRole string
}

type ApiKeyConfig struct {
	SecretName string
	Value      string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
	EnableMetrics  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled               bool
	RequestsPerMinute     int
	RequestsPerMinuteAuth int
	BurstSize             int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// RedisConfig configures the optional read cache for investor figures
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      int // seconds
}

// JobsConfig holds cron expressions for background jobs (6-field, with seconds)
type JobsConfig struct {
	Enabled               bool
	MaterializeSchedule   string
	ScheduleTopUpSchedule string
	// ClientSyncSchedule imports ERP customers; empty disables the job
	ClientSyncSchedule   string
	AuditCleanupSchedule string
	AuditRetentionDays   int
	RunOnStartup         bool
	Timeout              int // seconds
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

// FinancingConfig holds business defaults for developments and their schedules
type FinancingConfig struct {
	// Timezone in which "today" is evaluated for overdue and past dates
	Timezone string
	// OrderLookaheadDays is how far ahead scheduled service orders are materialized
	OrderLookaheadDays int
	// OrderPrefix is the prefix of generated order numbers
	OrderPrefix string
	// IncomeCategory is the category income records posted on collection receive
	IncomeCategory string
	// IssuerName and IssuerAddress head printed payment notices and receipts
	IssuerName    string
	IssuerAddress string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (d *DataWarehouseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

func (d *DataWarehouseConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(d.QueryTimeout) * time.Second
}

func (r *RedisConfig) TTLDuration() time.Duration {
	return time.Duration(r.TTL) * time.Second
}

func (j *JobsConfig) TimeoutDuration() time.Duration {
	return time.Duration(j.Timeout) * time.Second
}

// Location returns the configured business timezone, falling back to UTC
func (f *FinancingConfig) Location() *time.Location {
	if f.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from file and environment variables.
// Use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ApiKey.Value == "" {
		cfg.ApiKey.Value = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("AUTH_JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	}
	if v.GetBool("DATAWAREHOUSE_ENABLED") {
		cfg.DataWarehouse.Enabled = true
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
//
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production.
// Data warehouse credentials are always read from Key Vault when the warehouse is enabled
// and a vault name is configured.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	var provider *secrets.Provider
	vault := func() (*secrets.Provider, error) {
		if provider != nil {
			return provider, nil
		}
		provider, err = secrets.NewProvider(&secrets.ProviderConfig{
			Source:       secrets.SourceVault,
			VaultName:    cfg.Secrets.KeyVaultName,
			Environment:  cfg.App.Environment,
			CacheEnabled: cfg.Secrets.CacheEnabled,
			CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
		}, logger)
		return provider, err
	}

	if cfg.DataWarehouse.Enabled && cfg.Secrets.KeyVaultName != "" {
		if p, err := vault(); err != nil {
			// the warehouse is optional, startup continues without it
			logger.Warn("Failed to load data warehouse secrets from Key Vault", zap.Error(err))
		} else {
			applied := p.Apply(ctx, dataWarehouseBindings(cfg))
			logger.Info("Data warehouse credentials loaded", zap.Strings("secrets", applied))
		}
	}

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	p, err := vault()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	applied := p.Apply(ctx, secretBindings(cfg))
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	logger.Info("Secrets loaded from vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
		zap.Strings("secrets", applied))
	return cfg, nil
}

// secretBindings lists the Key Vault secret and environment override of every credential
func secretBindings(cfg *Config) []secrets.Binding {
	return []secrets.Binding{
		{Secret: "POSTGRES-HOST", Env: "DATABASE_HOST", Target: &cfg.Database.Host},
		{Secret: "POSTGRES-USER", Env: "DATABASE_USER", Target: &cfg.Database.User},
		{Secret: "POSTGRES-PASSWORD", Env: "DATABASE_PASSWORD", Target: &cfg.Database.Password},
		{Secret: "auth-jwt-secret", Env: "AUTH_JWT_SECRET", Target: &cfg.Auth.JWTSecret},
		{Secret: "admin-api-key", Env: "ADMIN_API_KEY", Target: &cfg.ApiKey.Value},
		{Secret: "storage-connection-string", Env: "STORAGE_CLOUDCONNECTIONSTRING", Target: &cfg.Storage.CloudConnectionString},
		{Secret: "redis-password", Env: "REDIS_PASSWORD", Target: &cfg.Redis.Password},
	}
}

func dataWarehouseBindings(cfg *Config) []secrets.Binding {
	return []secrets.Binding{
		{Secret: "WAREHOUSE-URL", Env: "DATAWAREHOUSE_URL", Target: &cfg.DataWarehouse.URL},
		{Secret: "WAREHOUSE-USERNAME", Env: "DATAWAREHOUSE_USER", Target: &cfg.DataWarehouse.User},
		{Secret: "WAREHOUSE-PASSWORD", Env: "DATAWAREHOUSE_PASSWORD", Target: &cfg.DataWarehouse.Password},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Field Service API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fieldservice")
	v.SetDefault("database.user", "fieldservice")
	v.SetDefault("database.password", "fieldservice")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)
	v.SetDefault("database.autoMigrate", false)

	v.SetDefault("dataWarehouse.enabled", false)
	v.SetDefault("dataWarehouse.maxOpenConns", 10)
	v.SetDefault("dataWarehouse.maxIdleConns", 2)
	v.SetDefault("dataWarehouse.connMaxLifetime", 300)
	v.SetDefault("dataWarehouse.queryTimeout", 30)
	v.SetDefault("dataWarehouse.customerTable", "dbo.Customers")

	v.SetDefault("auth.roleClaim", "user_role")
	v.SetDefault("auth.defaultRole", "viewer")
	v.SetDefault("auth.audience", "authenticated")

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "notices")
	v.SetDefault("storage.maxUploadSizeMB", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)
	v.SetDefault("server.enableMetrics", true)

	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID", "Content-Disposition"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/metrics"})

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 300)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.materializeSchedule", "0 0 5 * * *")    // daily 05:00
	v.SetDefault("jobs.scheduleTopUpSchedule", "0 30 4 * * 1") // Mondays 04:30
	v.SetDefault("jobs.clientSyncSchedule", "0 15 * * * *")    // hourly at :15
	v.SetDefault("jobs.auditCleanupSchedule", "0 0 3 * * 0")   // Sundays 03:00
	v.SetDefault("jobs.auditRetentionDays", 365)
	v.SetDefault("jobs.runOnStartup", false)
	v.SetDefault("jobs.timeout", 300)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "fieldservice-api")

	v.SetDefault("financing.timezone", "America/Mexico_City")
	v.SetDefault("financing.orderLookaheadDays", 7)
	v.SetDefault("financing.orderPrefix", "ORD")
	v.SetDefault("financing.incomeCategory", "development_fee")
	v.SetDefault("financing.issuerName", "FieldOps Servicios")
	v.SetDefault("financing.issuerAddress", "")
}
