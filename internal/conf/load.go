package conf

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smartalerte/smartalerte/internal/errors"
)

// EnvPrefix namespaces environment overrides, e.g. SMARTALERTE_DATABASE_TYPE.
const EnvPrefix = "SMARTALERTE"

// Load reads configuration from configFile (or ./config.yaml when empty),
// applies environment overrides and validates the result. A .env file in the
// working directory is loaded first if present.
func Load(configFile string) (*Settings, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("file", ".env").
				Build()
		}
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/smartalerte")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("file", configFile).
				Build()
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "smartalerte")
	v.SetDefault("main.log_level", "info")
	v.SetDefault("main.log_format", "json")

	v.SetDefault("database.type", DatabaseSQLite)
	v.SetDefault("database.path", "smartalerte.db")
	v.SetDefault("database.debug", false)
	v.SetDefault("database.mysql.host", "")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.api_token", "")

	v.SetDefault("alerting.sweep_schedule", "*/15 * * * *")
	v.SetDefault("alerting.notification_retention_days", 30)
	v.SetDefault("alerting.dispatch_timeout", "10s")
	v.SetDefault("alerting.rule_cache_ttl", "30s")
	v.SetDefault("alerting.lock_backend", LockBackendLocal)
	v.SetDefault("alerting.lock_ttl", "30s")
	v.SetDefault("alerting.seed_default_alert", true)

	v.SetDefault("notification.email.enabled", false)
	v.SetDefault("notification.email.host", "")
	v.SetDefault("notification.email.port", 587)
	v.SetDefault("notification.email.username", "")
	v.SetDefault("notification.email.password", "")
	v.SetDefault("notification.email.from", "")
	v.SetDefault("notification.email.encryption", "auto")

	v.SetDefault("notification.telegram.enabled", false)
	v.SetDefault("notification.telegram.bot_token", "")
	v.SetDefault("notification.telegram.timeout", "10s")
	v.SetDefault("notification.telegram.rate_limit", 25.0)

	v.SetDefault("notification.mqtt.enabled", false)
	v.SetDefault("notification.mqtt.broker", "")
	v.SetDefault("notification.mqtt.client_id", "smartalerte")
	v.SetDefault("notification.mqtt.username", "")
	v.SetDefault("notification.mqtt.password", "")
	v.SetDefault("notification.mqtt.topic_prefix", "smartalerte/alerts")
	v.SetDefault("notification.mqtt.qos", 1)
	v.SetDefault("notification.mqtt.retain", false)
	v.SetDefault("notification.mqtt.timeout", "10s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}
