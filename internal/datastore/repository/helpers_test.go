package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// setupTestDB creates an in-memory SQLite database. Uses shared-cache mode
// with a single connection so every query sees the same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(entities.All()...), "failed to migrate tables")
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, staff, super bool) *entities.User {
	t.Helper()
	user := &entities.User{
		Username:    username,
		Email:       username + "@example.com",
		IsStaff:     staff,
		IsSuperuser: super,
	}
	require.NoError(t, NewUserRepository(db).CreateUser(t.Context(), user))
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, sku, category string, qty, minQty int) *entities.Product {
	t.Helper()
	product := &entities.Product{
		Name:        "Product " + sku,
		SKU:         sku,
		Category:    category,
		Quantity:    qty,
		MinQuantity: minQty,
		Price:       decimal.RequireFromString("9.99"),
	}
	require.NoError(t, NewProductRepository(db).CreateProduct(t.Context(), product))
	return product
}

func createTestAlert(t *testing.T, db *gorm.DB, userID uint, name string, active bool) *entities.Alert {
	t.Helper()
	threshold := "5"
	alert := &entities.Alert{
		UserID:               userID,
		Name:                 name,
		Module:               "stock",
		Severity:             "high",
		ConditionType:        "threshold",
		ConditionField:       "quantity",
		ComparisonOperator:   "less_than",
		ThresholdValue:       &threshold,
		NotificationChannels: []string{"email"},
		Schedule:             "immediate",
		IsActive:             active,
	}
	require.NoError(t, NewAlertRepository(db).CreateAlert(t.Context(), alert))
	return alert
}
