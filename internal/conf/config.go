// Package conf holds the service configuration and its loader.
package conf

import (
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smartalerte/smartalerte/internal/errors"
)

// Settings is the root configuration object. It is injected into every
// subsystem that needs credentials or tunables.
type Settings struct {
	Main         MainSettings         `mapstructure:"main" json:"main" yaml:"main"`
	Database     DatabaseSettings     `mapstructure:"database" json:"database" yaml:"database"`
	WebServer    WebServerSettings    `mapstructure:"webserver" json:"webserver" yaml:"webserver"`
	Alerting     AlertingSettings     `mapstructure:"alerting" json:"alerting" yaml:"alerting"`
	Notification NotificationSettings `mapstructure:"notification" json:"notification" yaml:"notification"`
	Redis        RedisSettings        `mapstructure:"redis" json:"redis" yaml:"redis"`
	Sentry       SentrySettings       `mapstructure:"sentry" json:"sentry" yaml:"sentry"`
	Tracing      TracingSettings      `mapstructure:"tracing" json:"tracing" yaml:"tracing"`
}

// MainSettings contains process-wide options.
type MainSettings struct {
	Name      string `mapstructure:"name" json:"name" yaml:"name"`
	LogLevel  string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format" yaml:"log_format"` // json or console
}

// DatabaseSettings selects and configures the backing store.
type DatabaseSettings struct {
	Type  string        `mapstructure:"type" json:"type" yaml:"type"` // sqlite or mysql
	Path  string        `mapstructure:"path" json:"path" yaml:"path"`
	MySQL MySQLSettings `mapstructure:"mysql" json:"mysql" yaml:"mysql"`
	Debug bool          `mapstructure:"debug" json:"debug" yaml:"debug"`
}

// MySQLSettings holds MySQL connection parameters.
type MySQLSettings struct {
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	Username string `mapstructure:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" json:"-" yaml:"password"`
	Database string `mapstructure:"database" json:"database" yaml:"database"`
}

// WebServerSettings configures the REST API.
type WebServerSettings struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Listen   string `mapstructure:"listen" json:"listen" yaml:"listen"`
	APIToken string `mapstructure:"api_token" json:"-" yaml:"api_token"`
}

// AlertingSettings tunes the evaluation engine.
type AlertingSettings struct {
	// SweepSchedule is a cron spec for the periodic full evaluation. Empty disables it.
	SweepSchedule string `mapstructure:"sweep_schedule" json:"sweep_schedule" yaml:"sweep_schedule"`
	// NotificationRetentionDays removes read notifications older than this. 0 disables cleanup.
	NotificationRetentionDays int      `mapstructure:"notification_retention_days" json:"notification_retention_days" yaml:"notification_retention_days"`
	DispatchTimeout           Duration `mapstructure:"dispatch_timeout" json:"dispatch_timeout" yaml:"dispatch_timeout"`
	RuleCacheTTL              Duration `mapstructure:"rule_cache_ttl" json:"rule_cache_ttl" yaml:"rule_cache_ttl"`
	// LockBackend serialises evaluation per (alert, product): "local" or "redis".
	LockBackend string   `mapstructure:"lock_backend" json:"lock_backend" yaml:"lock_backend"`
	LockTTL     Duration `mapstructure:"lock_ttl" json:"lock_ttl" yaml:"lock_ttl"`
	// SeedDefaultAlert creates the automatic low-stock alert on startup.
	SeedDefaultAlert bool `mapstructure:"seed_default_alert" json:"seed_default_alert" yaml:"seed_default_alert"`
}

// NotificationSettings groups outbound channel configuration.
type NotificationSettings struct {
	Email    EmailSettings    `mapstructure:"email" json:"email" yaml:"email"`
	Telegram TelegramSettings `mapstructure:"telegram" json:"telegram" yaml:"telegram"`
	MQTT     MQTTSettings     `mapstructure:"mqtt" json:"mqtt" yaml:"mqtt"`
}

// EmailSettings configures SMTP delivery.
type EmailSettings struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"host" json:"host" yaml:"host"`
	Port     int    `mapstructure:"port" json:"port" yaml:"port"`
	Username string `mapstructure:"username" json:"username" yaml:"username"`
	Password string `mapstructure:"password" json:"-" yaml:"password"`
	From     string `mapstructure:"from" json:"from" yaml:"from"`
	// Encryption is passed through to the SMTP transport: auto, none, explicittls, implicittls.
	Encryption string `mapstructure:"encryption" json:"encryption" yaml:"encryption"`
}

// TelegramSettings configures the Telegram Bot API channel.
type TelegramSettings struct {
	Enabled  bool     `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	BotToken string   `mapstructure:"bot_token" json:"-" yaml:"bot_token"`
	Timeout  Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	// RateLimit is the maximum number of messages per second.
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
}

// MQTTSettings configures alert event publishing.
type MQTTSettings struct {
	Enabled     bool     `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Broker      string   `mapstructure:"broker" json:"broker" yaml:"broker"`
	ClientID    string   `mapstructure:"client_id" json:"client_id" yaml:"client_id"`
	Username    string   `mapstructure:"username" json:"username" yaml:"username"`
	Password    string   `mapstructure:"password" json:"-" yaml:"password"`
	TopicPrefix string   `mapstructure:"topic_prefix" json:"topic_prefix" yaml:"topic_prefix"`
	QoS         byte     `mapstructure:"qos" json:"qos" yaml:"qos"`
	Retain      bool     `mapstructure:"retain" json:"retain" yaml:"retain"`
	Timeout     Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// RedisSettings configures the distributed pair lock.
type RedisSettings struct {
	Addr     string `mapstructure:"addr" json:"addr" yaml:"addr"`
	Password string `mapstructure:"password" json:"-" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	DSN         string `mapstructure:"dsn" json:"-" yaml:"dsn"`
	Environment string `mapstructure:"environment" json:"environment" yaml:"environment"`
}

// TracingSettings configures OpenTelemetry export.
type TracingSettings struct {
	Enabled     bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	Insecure    bool    `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" json:"sample_ratio" yaml:"sample_ratio"`
}

const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"

	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Validate checks cross-field constraints that defaults cannot express.
func (s *Settings) Validate() error {
	var errs []error

	switch strings.ToLower(s.Database.Type) {
	case DatabaseSQLite:
		if s.Database.Path == "" {
			errs = append(errs, configError("database.path is required for sqlite", "database.path"))
		}
	case DatabaseMySQL:
		if s.Database.MySQL.Host == "" || s.Database.MySQL.Database == "" {
			errs = append(errs, configError("database.mysql.host and database.mysql.database are required", "database.mysql"))
		}
	default:
		errs = append(errs, configError("unsupported database type "+s.Database.Type, "database.type"))
	}

	if spec := s.Alerting.SweepSchedule; spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, configError("invalid alerting.sweep_schedule: "+err.Error(), "alerting.sweep_schedule"))
		}
	}

	switch s.Alerting.LockBackend {
	case "", LockBackendLocal:
	case LockBackendRedis:
		if s.Redis.Addr == "" {
			errs = append(errs, configError("redis.addr is required when alerting.lock_backend is redis", "redis.addr"))
		}
	default:
		errs = append(errs, configError("unsupported alerting.lock_backend "+s.Alerting.LockBackend, "alerting.lock_backend"))
	}

	if s.Notification.Email.Enabled && (s.Notification.Email.Host == "" || s.Notification.Email.From == "") {
		errs = append(errs, configError("notification.email requires host and from", "notification.email"))
	}
	if s.Notification.Telegram.Enabled && s.Notification.Telegram.BotToken == "" {
		errs = append(errs, configError("notification.telegram requires bot_token", "notification.telegram.bot_token"))
	}
	if s.Notification.MQTT.Enabled && s.Notification.MQTT.Broker == "" {
		errs = append(errs, configError("notification.mqtt requires broker", "notification.mqtt.broker"))
	}

	return errors.Join(errs...)
}

// DispatchTimeout returns the channel dispatch deadline, defaulting to 10s.
func (s *Settings) DispatchTimeout() time.Duration {
	if d := s.Alerting.DispatchTimeout.Std(); d > 0 {
		return d
	}
	return 10 * time.Second
}

func configError(msg, key string) error {
	return errors.Newf("%s", msg).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("key", key).
		Build()
}

var (
	settingsMu sync.RWMutex
	settings   *Settings
)

// GetSettings returns the process-wide settings, or nil before Load.
func GetSettings() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings
}

// SetSettings replaces the process-wide settings.
func SetSettings(s *Settings) {
	settingsMu.Lock()
	settings = s
	settingsMu.Unlock()
}
