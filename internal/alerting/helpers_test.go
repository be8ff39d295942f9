package alerting

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/smartalerte/smartalerte/internal/datastore"
	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/notification"
)

func testLogger() logger.Logger {
	return logger.New(io.Discard, logger.LogLevelError, nil)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentEmail struct {
	addresses []string
	subject   string
	body      string
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (r *recordingEmail) SendEmail(_ context.Context, addresses []string, subject, body string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEmail{addresses: addresses, subject: subject, body: body})
	if r.err != nil {
		return 0, r.err
	}
	return len(addresses), nil
}

func (r *recordingEmail) all() []sentEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEmail(nil), r.sent...)
}

type recordingTelegram struct {
	mu    sync.Mutex
	chats []string
	err   error
}

func (r *recordingTelegram) SendTelegram(_ context.Context, chatID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, chatID)
	return r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notification.AlertEvent
}

func (r *recordingPublisher) Publish(_ context.Context, event notification.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type testRepos struct {
	alerts        repository.AlertRepository
	products      repository.ProductRepository
	notifications repository.NotificationRepository
	states        repository.AlertStateRepository
	users         repository.UserRepository
}

type testEnv struct {
	db       *gorm.DB
	repos    testRepos
	clock    *fakeClock
	email    *recordingEmail
	telegram *recordingTelegram
	events   *recordingPublisher
	engine   *Engine
}

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, datastore.Migrate(db), "failed to migrate tables")
	return db
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	db := newTestDB(t)
	env := &testEnv{
		db: db,
		repos: testRepos{
			alerts:        repository.NewAlertRepository(db),
			products:      repository.NewProductRepository(db),
			notifications: repository.NewNotificationRepository(db),
			states:        repository.NewAlertStateRepository(db),
			users:         repository.NewUserRepository(db),
		},
		clock:    newFakeClock(),
		email:    &recordingEmail{},
		telegram: &recordingTelegram{},
		events:   &recordingPublisher{},
	}

	deps := Deps{
		Alerts:        env.repos.alerts,
		Products:      env.repos.products,
		Notifications: env.repos.notifications,
		States:        env.repos.states,
		Users:         env.repos.users,
		Channels: Channels{
			Email:    env.email,
			Telegram: env.telegram,
			Events:   env.events,
		},
		Now:    env.clock.Now,
		Logger: testLogger(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.engine = NewEngine(deps)
	return env
}

func (env *testEnv) createUser(t *testing.T, username, email string, staff, super bool) *entities.User {
	t.Helper()
	user := &entities.User{Username: username, Email: email, IsStaff: staff, IsSuperuser: super}
	require.NoError(t, env.repos.users.CreateUser(t.Context(), user))
	return user
}

func (env *testEnv) createProduct(t *testing.T, sku, category string, qty, minQty int) *entities.Product {
	t.Helper()
	product := &entities.Product{
		Name:        "Produit " + sku,
		SKU:         sku,
		Category:    category,
		Quantity:    qty,
		MinQuantity: minQty,
		MaxQuantity: 100,
		Price:       decimal.RequireFromString("19.90"),
	}
	require.NoError(t, env.repos.products.CreateProduct(t.Context(), product))
	return product
}

// createAlert stores a low-stock alert (quantity < min_quantity, immediate,
// email) owned by owner, after applying mutate.
func (env *testEnv) createAlert(t *testing.T, owner *entities.User, mutate func(*entities.Alert)) *entities.Alert {
	t.Helper()
	alert := &entities.Alert{
		UserID:               owner.ID,
		Name:                 "Stock bas",
		Module:               ModuleStock,
		Severity:             SeverityHigh,
		ConditionType:        ConditionThreshold,
		ConditionField:       string(FieldQuantity),
		ComparisonOperator:   OperatorLessThan,
		CompareTo:            CompareToMinStock,
		NotificationChannels: []string{ChannelEmail},
		Recipients:           []string{"ops@example.com"},
		Schedule:             ScheduleImmediate,
		IsActive:             true,
	}
	if mutate != nil {
		mutate(alert)
	}
	require.NoError(t, env.repos.alerts.CreateAlert(t.Context(), alert))

	loaded, err := env.repos.alerts.GetAlert(t.Context(), alert.ID)
	require.NoError(t, err)
	return loaded
}

func (env *testEnv) setQuantity(t *testing.T, product *entities.Product, qty int) {
	t.Helper()
	product.Quantity = qty
	require.NoError(t, env.repos.products.UpdateProduct(t.Context(), product))
}

// pairNotifications returns every notification for the alert, oldest first.
func (env *testEnv) pairNotifications(t *testing.T, alertID uint) []entities.Notification {
	t.Helper()
	var out []entities.Notification
	require.NoError(t, env.db.Where("alert_id = ?", alertID).Order("created_at ASC, id ASC").Find(&out).Error)
	return out
}

func notificationTypes(ns []entities.Notification) []string {
	out := make([]string, len(ns))
	for i := range ns {
		out[i] = ns[i].NotificationType
	}
	return out
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }
