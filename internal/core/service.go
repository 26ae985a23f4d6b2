package core

import (
	"context"
	"time"

	"hsecore/internal/infra/persistence/memory"
	"hsecore/pkg/domain"
)

// Service exposes transactional HSE operations on top of a persistent store.
// Every mutating call runs in one store transaction and is traced, measured,
// logged and audited.
type Service struct {
	store   PersistentStore
	engine  *RulesEngine
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	events  EventPublisher
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used for audit timestamps, notification expiry
// and "today" in due checkup derivation. Stores that accept a time source are
// switched to it as well.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock == nil {
			return
		}
		s.clock = clock
		if setter, ok := s.store.(interface{ SetNowFunc(func() time.Time) }); ok {
			setter.SetNowFunc(clock.Now)
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithEventPublisher sets the sink for committed stock movements.
func WithEventPublisher(publisher EventPublisher) ServiceOption {
	return func(s *Service) {
		if publisher != nil {
			s.events = publisher
		}
	}
}

// WithRulesEngine records the engine the store evaluates, for introspection.
func WithRulesEngine(engine *RulesEngine) ServiceOption {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store:   store,
		logger:  noopLogger{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		events:  noopEventPublisher{},
	}
	if provider, ok := store.(interface{ RulesEngine() *RulesEngine }); ok {
		svc.engine = provider.RulesEngine()
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// RulesEngine returns the engine evaluated by the store, when known.
func (s *Service) RulesEngine() *RulesEngine { return s.engine }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Today returns the Jalali date of the service clock in Asia/Tehran.
func (s *Service) Today() domain.JalaliDate {
	return domain.JalaliFromTime(s.clock.Now().In(tehran))
}

var tehran = loadTehran()

func loadTehran() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		return time.FixedZone("IRST", 3*60*60+30*60)
	}
	return loc
}

// run executes fn in one store transaction and reports the outcome to the
// tracer, metrics, logger and audit sinks. entityID is read after fn returns
// so creates can report the generated id.
func (s *Service) run(ctx context.Context, op string, entityID *string, fn func(Transaction) error) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(started)
	id := ""
	if entityID != nil {
		id = *entityID
	}
	if es, ok := span.(entitySpan); ok && id != "" {
		es.SetEntityID(id)
	}
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", id, "error", err)
		s.recordAuditError(ctx, op, id, duration, err)
		return res, err
	}
	for _, v := range res.Warnings() {
		s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
	}
	s.logger.Debug("operation committed", "operation", op, "entity_id", id, "duration", duration)
	s.recordAuditSuccess(ctx, op, id, duration)
	return res, nil
}

// fail reports an operation rejected before reaching the store.
func (s *Service) fail(ctx context.Context, op, entityID string, err error) error {
	_, span := s.tracer.Start(ctx, op)
	if es, ok := span.(entitySpan); ok && entityID != "" {
		es.SetEntityID(entityID)
	}
	span.End(err)
	s.metrics.Observe(ctx, op, false, 0)
	s.logger.Info("operation rejected", "operation", op, "entity_id", entityID, "error", err)
	s.recordAuditError(ctx, op, entityID, 0, err)
	return err
}

func (s *Service) view(ctx context.Context, fn func(TransactionView) error) error {
	return s.store.View(ctx, fn)
}
