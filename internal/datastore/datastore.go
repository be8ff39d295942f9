// Package datastore opens the relational store backing alerts, products
// and notifications.
package datastore

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// Open connects to the configured database and migrates the schema.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	logLevel := gorm_logger.Warn
	if settings.Debug {
		logLevel = gorm_logger.Info
	}
	cfg := &gorm.Config{Logger: gorm_logger.Default.LogMode(logLevel)}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(settings.Type) {
	case conf.DatabaseMySQL:
		db, err = gorm.Open(mysql.Open(MySQLDSN(&settings.MySQL)), cfg)
	case conf.DatabaseSQLite, "":
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(settings.Path)), cfg)
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("type", settings.Type).
			Build()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if strings.EqualFold(settings.Type, conf.DatabaseMySQL) {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("database opened",
		logger.String("type", settings.Type),
		logger.Int("models", len(entities.All())))
	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}
	if err := backfillCategoryKeys(db); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "backfill_category_key").
			Build()
	}
	return nil
}

// backfillCategoryKeys folds categories of rows written before the
// category_key column existed.
func backfillCategoryKeys(db *gorm.DB) error {
	var stale []entities.Product
	err := db.Select("id", "category").
		Where("category <> '' AND (category_key IS NULL OR category_key = '')").
		Find(&stale).Error
	if err != nil {
		return err
	}
	for i := range stale {
		key := entities.FoldCategory(stale[i].Category)
		if err := db.Model(&entities.Product{}).Where("id = ?", stale[i].ID).
			Update("category_key", key).Error; err != nil {
			return err
		}
	}
	return nil
}

// SQLiteDSN enables foreign keys and a busy timeout on the given file.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=ON&_busy_timeout=5000"
}

// MySQLDSN builds a DSN with time parsing enabled.
func MySQLDSN(s *conf.MySQLSettings) string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	cfg := mysqldriver.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(port))
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
