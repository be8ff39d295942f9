//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/smartalerte/smartalerte/internal/conf"
)

const (
	mysqlImage    = "mysql:8.0"
	mysqlDatabase = "smartalerte_test"
	mysqlUser     = "smartalerte"
	mysqlPassword = "smartalerte"
)

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// MySQLContainer is a throwaway MySQL 8 server for the repository tests.
type MySQLContainer struct {
	container *mysql.MySQLContainer
	db        *sql.DB
	settings  conf.MySQLSettings
}

// NewMySQLContainer starts MySQL and opens a shared connection pool.
func NewMySQLContainer(ctx context.Context) (*MySQLContainer, error) {
	container, err := mysql.Run(ctx, mysqlImage,
		mysql.WithDatabase(mysqlDatabase),
		mysql.WithUsername(mysqlUser),
		mysql.WithPassword(mysqlPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	mc := &MySQLContainer{container: container}
	if err := mc.connect(ctx); err != nil {
		_ = container.Terminate(context.Background())
		return nil, err
	}
	return mc, nil
}

func (c *MySQLContainer) connect(ctx context.Context) error {
	host, err := c.container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.container.MappedPort(ctx, "3306")
	if err != nil {
		return fmt.Errorf("failed to get mapped port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return fmt.Errorf("invalid mapped port %q: %w", port.Port(), err)
	}
	c.settings = conf.MySQLSettings{
		Host:     host,
		Port:     portNum,
		Username: mysqlUser,
		Password: mysqlPassword,
		Database: mysqlDatabase,
	}

	dsn, err := c.container.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	c.db = db
	return nil
}

// DB returns the shared pool. Tests must not close it.
func (c *MySQLContainer) DB() *sql.DB {
	return c.db
}

// Settings returns connection settings usable with datastore.Open.
func (c *MySQLContainer) Settings() conf.MySQLSettings {
	return c.settings
}

// Reset truncates tables on a single session with foreign key checks off.
func (c *MySQLContainer) Reset(ctx context.Context, tables []string) error {
	for _, table := range tables {
		if !tableNameRe.MatchString(table) {
			return fmt.Errorf("invalid table name: %q", table)
		}
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("failed to disable foreign key checks: %w", err)
	}
	defer func() { _, _ = conn.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1") }()

	for _, table := range tables {
		if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE `"+table+"`"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}

// Terminate closes the pool and removes the container.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
