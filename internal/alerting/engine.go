package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

const (
	activeRulesKey   = "active_stock_alerts"
	productPageSize  = 500
	tracerName       = "github.com/smartalerte/smartalerte/internal/alerting"
	entryAlert       = "alert"
	entryProduct     = "product"
	entrySweep       = "sweep"
	loadRulesTimeout = 5 * time.Second
)

// EvaluationResult counts what one evaluation run did.
type EvaluationResult struct {
	Evaluated int `json:"evaluated"`
	Triggered int `json:"triggered"`
	Resolved  int `json:"resolved"`
}

func (r *EvaluationResult) add(other EvaluationResult) {
	r.Evaluated += other.Evaluated
	r.Triggered += other.Triggered
	r.Resolved += other.Resolved
}

// Deps wires an Engine. Repositories are required; everything else has a default.
type Deps struct {
	Alerts        repository.AlertRepository
	Products      repository.ProductRepository
	Notifications repository.NotificationRepository
	States        repository.AlertStateRepository
	Users         repository.UserRepository

	Channels        Channels
	Locker          PairLocker
	Metrics         *metrics.AlertingMetrics
	RuleCacheTTL    time.Duration
	DispatchTimeout time.Duration
	Now             func() time.Time
	Logger          logger.Logger
}

// Engine drives the per-pair state machine
// NEVER_TRIGGERED -> UNRESOLVED <-> RESOLVED for stock alerts.
type Engine struct {
	alerts   repository.AlertRepository
	products repository.ProductRepository
	users    repository.UserRepository
	emitter  *Emitter
	dispatch *Dispatcher
	tracker  *StateTracker
	locker   PairLocker
	metrics  *metrics.AlertingMetrics
	tracer   trace.Tracer
	log      logger.Logger

	// rules caches the active stock alerts; nil disables caching.
	rules *cache.Cache
}

// NewEngine creates an Engine from deps.
func NewEngine(deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Module(componentName)

	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}

	tracker := NewStateTracker(deps.States, deps.Notifications)
	dispatcher := NewDispatcher(deps.Channels, deps.DispatchTimeout, deps.Metrics, log)

	e := &Engine{
		alerts:   deps.Alerts,
		products: deps.Products,
		users:    deps.Users,
		emitter:  NewEmitter(deps.Notifications, tracker, dispatcher, deps.Metrics, deps.Now, log),
		dispatch: dispatcher,
		tracker:  tracker,
		locker:   locker,
		metrics:  deps.Metrics,
		tracer:   otel.Tracer(tracerName),
		log:      log,
	}
	if deps.RuleCacheTTL > 0 {
		e.rules = cache.New(deps.RuleCacheTTL, 2*deps.RuleCacheTTL)
	}
	return e
}

// Emitter exposes the notification emitter.
func (e *Engine) Emitter() *Emitter { return e.emitter }

// StateTracker exposes the pair state reader.
func (e *Engine) StateTracker() *StateTracker { return e.tracker }

// ActiveRules returns the active stock alerts, from cache when fresh.
func (e *Engine) ActiveRules(ctx context.Context) ([]entities.Alert, error) {
	if e.rules != nil {
		if cached, ok := e.rules.Get(activeRulesKey); ok {
			if rules, ok := cached.([]entities.Alert); ok {
				return rules, nil
			}
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, loadRulesTimeout)
	defer cancel()
	rules, err := e.alerts.GetActiveStockAlerts(loadCtx)
	if err != nil {
		e.metrics.RecordStoreError("load_rules")
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "load_rules").
			Build()
	}
	if e.rules != nil {
		e.rules.SetDefault(activeRulesKey, rules)
	}
	return rules, nil
}

// InvalidateRules drops the cached rule set. Call it whenever alerts change.
func (e *Engine) InvalidateRules() {
	if e.rules != nil {
		e.rules.Delete(activeRulesKey)
	}
}

// ConfirmAlertCreated emails owner a confirmation for a newly stored alert.
func (e *Engine) ConfirmAlertCreated(ctx context.Context, alert *entities.Alert, owner *entities.User) error {
	return e.dispatch.SendCreationConfirmation(ctx, alert, owner)
}

// EvaluateAlertAgainstAllProducts evaluates one alert against every product
// its product and category scope selects.
func (e *Engine) EvaluateAlertAgainstAllProducts(ctx context.Context, alert *entities.Alert) (result EvaluationResult, err error) {
	ctx, span := e.tracer.Start(ctx, "alerting.EvaluateAlertAgainstAllProducts",
		trace.WithAttributes(attribute.Int64("alert.id", int64(alert.ID))))
	start := time.Now()
	defer func() { e.finish(span, entryAlert, start, result, err) }()

	return e.evaluateAlert(ctx, alert)
}

func (e *Engine) evaluateAlert(ctx context.Context, alert *entities.Alert) (EvaluationResult, error) {
	var result EvaluationResult
	if alert.Module != ModuleStock || !alert.IsActive {
		return result, nil
	}

	filter := repository.ProductFilter{
		ProductID:  alert.ProductID,
		Categories: NormalizeCategories(alert.Categories),
		Limit:      productPageSize,
	}
	// Categories that fold to nothing cannot match any product.
	if len(alert.Categories) > 0 && len(filter.Categories) == 0 {
		return result, nil
	}

	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(errs, err)...)
		}
		products, err := e.products.ListProducts(ctx, filter)
		if err != nil {
			e.metrics.RecordStoreError("list_products")
			return result, errors.Join(append(errs, storeError(err, "list_products", alert, nil))...)
		}
		for i := range products {
			pair, err := e.evaluatePair(ctx, alert, &products[i])
			result.add(pair)
			if err != nil {
				errs = append(errs, err)
			}
		}
		if len(products) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}
	return result, errors.Join(errs...)
}

// EvaluateAllAlertsForProduct evaluates every active stock alert against
// product. Store failures of one alert do not stop the others.
func (e *Engine) EvaluateAllAlertsForProduct(ctx context.Context, product *entities.Product) (result EvaluationResult, err error) {
	ctx, span := e.tracer.Start(ctx, "alerting.EvaluateAllAlertsForProduct",
		trace.WithAttributes(attribute.Int64("product.id", int64(product.ID))))
	start := time.Now()
	defer func() { e.finish(span, entryProduct, start, result, err) }()

	rules, err := e.ActiveRules(ctx)
	if err != nil {
		return result, err
	}

	var errs []error
	for i := range rules {
		pair, err := e.evaluatePair(ctx, &rules[i], product)
		result.add(pair)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

// EvaluateProduct loads a product by id and evaluates all alerts against it.
func (e *Engine) EvaluateProduct(ctx context.Context, productID uint) (EvaluationResult, error) {
	product, err := e.products.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return EvaluationResult{}, errors.New(err).
				Component(componentName).
				Category(errors.CategoryNotFound).
				Context("product_id", productID).
				Build()
		}
		return EvaluationResult{}, errors.New(err).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("operation", "get_product").
			Context("product_id", productID).
			Build()
	}
	return e.EvaluateAllAlertsForProduct(ctx, product)
}

// SweepAll evaluates every active stock alert against every product in its
// scope. It always reads rules fresh from the store.
func (e *Engine) SweepAll(ctx context.Context) (result EvaluationResult, err error) {
	runID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "alerting.SweepAll",
		trace.WithAttributes(attribute.String("sweep.run_id", runID)))
	start := time.Now()
	defer func() { e.finish(span, entrySweep, start, result, err) }()

	e.InvalidateRules()
	rules, err := e.ActiveRules(ctx)
	if err != nil {
		return result, err
	}

	var errs []error
	for i := range rules {
		partial, err := e.evaluateAlert(ctx, &rules[i])
		result.add(partial)
		if err != nil {
			errs = append(errs, err)
		}
	}

	e.log.Info("alert sweep completed",
		logger.String("run_id", runID),
		logger.Int("alerts", len(rules)),
		logger.Int("evaluated", result.Evaluated),
		logger.Int("triggered", result.Triggered),
		logger.Int("resolved", result.Resolved),
		logger.Int("errors", len(errs)),
		logger.Duration("duration", time.Since(start)))
	return result, errors.Join(errs...)
}

// evaluatePair runs one step of the state machine under the pair lock.
func (e *Engine) evaluatePair(ctx context.Context, alert *entities.Alert, product *entities.Product) (EvaluationResult, error) {
	result := EvaluationResult{Evaluated: 1}

	if !IsEvaluable(alert.ConditionType) {
		e.log.Debug("unsupported condition type, skipping",
			logger.Uint64("alert_id", uint64(alert.ID)),
			logger.String("condition_type", alert.ConditionType))
		return result, nil
	}

	unlock, err := e.locker.Lock(ctx, alert.ID, product.ID)
	if err != nil {
		return result, err
	}
	defer unlock()

	matched, message := Matches(alert, product)
	if matched {
		created, err := e.emitter.CreateTriggerNotification(ctx, alert, product, message)
		if created {
			result.Triggered = 1
		}
		return result, err
	}

	resolved, err := e.emitter.CreateResolvedNotification(ctx, alert, product)
	if resolved {
		result.Resolved = 1
	}
	return result, err
}

func (e *Engine) finish(span trace.Span, entry string, start time.Time, result EvaluationResult, err error) {
	e.metrics.RecordEvaluation(entry, result.Evaluated, time.Since(start))
	span.SetAttributes(
		attribute.Int("result.evaluated", result.Evaluated),
		attribute.Int("result.triggered", result.Triggered),
		attribute.Int("result.resolved", result.Resolved),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
