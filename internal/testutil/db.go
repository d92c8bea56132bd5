// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/database"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// A single connection is used so the database lives as long as the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Date returns midnight UTC of the given day
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestClient inserts an active client
func CreateTestClient(t *testing.T, db *gorm.DB, name string) *domain.Client {
	t.Helper()
	client := &domain.Client{
		Name:     name,
		Email:    "billing@example.com",
		Phone:    "5550100",
		City:     "Guadalajara",
		IsActive: true,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// CreateTestDevelopment inserts an active development without schedule rows.
// The investor terms are 3000/month against 9000 at 20% profit.
func CreateTestDevelopment(t *testing.T, db *gorm.DB, name string, clientID *uuid.UUID) *domain.Development {
	t.Helper()
	dev := &domain.Development{
		Name:                  name,
		Address:               "Av. Vallarta 1200",
		ClientID:              clientID,
		ContractStartDate:     Date(2026, time.January, 15),
		DurationMonths:        6,
		MonthlyPayment:        Dec("3000"),
		PaymentDay:            10,
		ServiceDay:            20,
		AutoGenerateOrders:    true,
		HasInvestor:           true,
		InvestorName:          "Inversiones Norte",
		InvestorAmount:        Dec("9000"),
		InvestorProfitPercent: Dec("20"),
		Status:                domain.DevelopmentStatusActive,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(dev).Error)
	return dev
}
