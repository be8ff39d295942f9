package alerting

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/notification"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

const redisPingTimeout = 5 * time.Second

// Repositories bundles the stores the alerting subsystem reads and writes.
type Repositories struct {
	Alerts        repository.AlertRepository
	Products      repository.ProductRepository
	Notifications repository.NotificationRepository
	States        repository.AlertStateRepository
	Users         repository.UserRepository
}

// NewRepositories creates gorm-backed repositories sharing db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Alerts:        repository.NewAlertRepository(db),
		Products:      repository.NewProductRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		States:        repository.NewAlertStateRepository(db),
		Users:         repository.NewUserRepository(db),
	}
}

// Runtime is a fully wired alerting subsystem.
type Runtime struct {
	Repos   Repositories
	Engine  *Engine
	Sweeper *Sweeper

	redis redis.UniversalClient
}

// Options are the inputs to Initialize. Notifications and Metrics may be nil.
type Options struct {
	Settings      *conf.Settings
	DB            *gorm.DB
	Notifications *notification.Service
	Metrics       *metrics.AlertingMetrics
	Logger        logger.Logger
}

// Initialize builds the engine and sweeper from settings. It does not start
// the sweeper. When enabled, the default low-stock alert is seeded.
func Initialize(ctx context.Context, opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	settings := opts.Settings
	rt := &Runtime{Repos: NewRepositories(opts.DB)}

	locker, client, err := newPairLocker(ctx, settings)
	if err != nil {
		return nil, err
	}
	rt.redis = client

	rt.Engine = NewEngine(Deps{
		Alerts:          rt.Repos.Alerts,
		Products:        rt.Repos.Products,
		Notifications:   rt.Repos.Notifications,
		States:          rt.Repos.States,
		Users:           rt.Repos.Users,
		Channels:        ChannelsFromService(opts.Notifications),
		Locker:          locker,
		Metrics:         opts.Metrics,
		RuleCacheTTL:    settings.Alerting.RuleCacheTTL.Std(),
		DispatchTimeout: settings.DispatchTimeout(),
		Logger:          log,
	})
	rt.Sweeper = NewSweeper(rt.Engine, rt.Repos.Notifications, SweeperConfig{
		Schedule:      settings.Alerting.SweepSchedule,
		RetentionDays: settings.Alerting.NotificationRetentionDays,
	}, opts.Metrics, log)

	if settings.Alerting.SeedDefaultAlert {
		if _, err := rt.Engine.EnsureDefaultStockAlert(ctx); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	log.Info("alerting initialized",
		logger.String("lock_backend", lockBackend(settings)),
		logger.Int("channels", len(opts.Notifications.EnabledChannels())))
	return rt, nil
}

// Close stops the sweeper and releases the lock backend.
func (rt *Runtime) Close() error {
	if rt.Sweeper != nil {
		rt.Sweeper.Stop()
	}
	if rt.redis != nil {
		return rt.redis.Close()
	}
	return nil
}

func lockBackend(settings *conf.Settings) string {
	backend := strings.ToLower(strings.TrimSpace(settings.Alerting.LockBackend))
	if backend == "" {
		return conf.LockBackendLocal
	}
	return backend
}

func newPairLocker(ctx context.Context, settings *conf.Settings) (PairLocker, redis.UniversalClient, error) {
	switch lockBackend(settings) {
	case conf.LockBackendLocal:
		return NewLocalLocker(), nil, nil
	case conf.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryNetwork).
				Context("operation", "redis_ping").
				Context("addr", settings.Redis.Addr).
				Build()
		}
		return NewRedisLocker(client, settings.Alerting.LockTTL.Std()), client, nil
	default:
		return nil, nil, errors.Newf("unsupported lock backend %q", settings.Alerting.LockBackend).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
}
