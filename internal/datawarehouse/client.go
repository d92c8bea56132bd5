// Package datawarehouse reads customer master data from the ERP data warehouse
// (MS SQL Server). The connection is optional and strictly read-only.
package datawarehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fieldops/fieldservice-api/internal/config"
	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"go.uber.org/zap"
)

const (
	connectAttempts    = 3
	initialBackoff     = 1 * time.Second
	maxBackoff         = 10 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// tableNamePattern accepts schema-qualified identifiers such as dbo.Customers
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Customer is one row of the ERP customer view
type Customer struct {
	ExternalID string
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	TaxID      string
}

// Client is a pooled read-only connection to the warehouse
type Client struct {
	db            *sql.DB
	logger        *zap.Logger
	queryTimeout  time.Duration
	customerTable string
}

// HealthStatus is the outcome of a warehouse ping with pool statistics
type HealthStatus struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
	Open      int           `json:"open_connections"`
	InUse     int           `json:"in_use"`
	Idle      int           `json:"idle"`
	WaitCount int64         `json:"wait_count"`
}

// NewClient connects to the warehouse. It returns a nil client without error when
// the warehouse is disabled or its credentials are missing.
func NewClient(cfg *config.DataWarehouseConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Data warehouse connection disabled")
		return nil, nil
	}
	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Data warehouse enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}
	if !tableNamePattern.MatchString(cfg.CustomerTable) {
		return nil, fmt.Errorf("invalid customer table name %q", cfg.CustomerTable)
	}

	connStr := buildConnectionString(cfg)

	var err error
	backoff := initialBackoff
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		var db *sql.DB
		db, err = sql.Open("sqlserver", connStr)
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
			db.SetMaxIdleConns(cfg.MaxIdleConns)
			db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			err = db.PingContext(ctx)
			cancel()
			if err == nil {
				logger.Info("Data warehouse connection established", zap.Int("attempts_taken", attempt))
				return &Client{
					db:            db,
					logger:        logger,
					queryTimeout:  cfg.QueryTimeoutDuration(),
					customerTable: cfg.CustomerTable,
				}, nil
			}
			_ = db.Close()
		}

		logger.Warn("Data warehouse connection attempt failed",
			zap.Error(err),
			zap.Int("attempt", attempt))
		if attempt < connectAttempts {
			time.Sleep(backoff)
			backoff = min(backoff*2, maxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to data warehouse after %d attempts: %w", connectAttempts, err)
}

// buildConnectionString turns host:port/database into a sqlserver URL
func buildConnectionString(cfg *config.DataWarehouseConfig) string {
	hostPort, database, _ := strings.Cut(cfg.URL, "/")
	host, port, found := strings.Cut(hostPort, ":")
	if !found {
		port = "1433"
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("connection timeout", "30")
	query.Add("ApplicationIntent", "ReadOnly")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     host + ":" + port,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// IsEnabled reports whether the client holds a live connection
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if !c.IsEnabled() {
		return &HealthStatus{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := c.db.PingContext(ctx)
	stats := c.db.Stats()

	status := &HealthStatus{
		Status:    "healthy",
		Latency:   time.Since(start),
		Open:      stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		WaitCount: stats.WaitCount,
	}
	if err != nil {
		c.logger.Warn("Data warehouse health check failed", zap.Error(err))
		status.Status = "unhealthy"
		status.Error = err.Error()
	}
	return status
}

// ListCustomers reads every active customer of the ERP. Columns missing a value
// come back as empty strings.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("data warehouse client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	// the table name is validated in NewClient, it cannot carry a parameter
	query := fmt.Sprintf(`SELECT CustomerNo, Name, Email, Phone, Address, City, TaxID
		FROM %s WHERE Blocked = 0 ORDER BY CustomerNo`, c.customerTable)

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("customer query failed: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var no, name string
		var email, phone, address, city, taxID sql.NullString
		if err := rows.Scan(&no, &name, &email, &phone, &address, &city, &taxID); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, Customer{
			ExternalID: strings.TrimSpace(no),
			Name:       strings.TrimSpace(name),
			Email:      strings.TrimSpace(email.String),
			Phone:      strings.TrimSpace(phone.String),
			Address:    strings.TrimSpace(address.String),
			City:       strings.TrimSpace(city.String),
			TaxID:      strings.TrimSpace(taxID.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}

	c.logger.Debug("Data warehouse customers read",
		zap.Int("rows", len(customers)),
		zap.Duration("duration", time.Since(start)))
	return customers, nil
}
