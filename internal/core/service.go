package core

import (
	"citydesk/internal/infra/persistence/memory"
	"context"
	"errors"
	"time"
)

// Service exposes transactional CRUD operations for cities and their
// commerces. Every operation is logged, timed, traced and, when it mutates
// state, audited.
type Service struct {
	store   PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
}

// ServiceOption configures optional service collaborators.
type ServiceOption func(*Service)

// WithLogger injects a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder injects the recorder observing operation outcomes.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer injects the tracer wrapping each operation in a span.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder injects the recorder receiving mutation audit entries.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithClock overrides the clock used for audit timestamps and durations.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run wraps an operation with tracing, metrics and logging. entityID reports
// the affected identifier for audit once fn has run.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) (int64, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	id, err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		s.logger.Warn("service operation failed", "operation", op, "id", id, "error", err)
		s.recordAuditError(ctx, op, id, duration, err)
		return err
	}
	s.logger.Debug("service operation", "operation", op, "id", id, "duration", duration)
	s.recordAuditSuccess(ctx, op, id, duration)
	return nil
}

func (s *Service) recordAuditSuccess(ctx context.Context, op string, id int64, duration time.Duration) {
	s.recordAudit(ctx, op, id, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op string, id int64, duration time.Duration, err error) {
	s.recordAudit(ctx, op, id, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op string, id int64, duration time.Duration, err error) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// ListCities returns every city with its commerces, ordered by id.
func (s *Service) ListCities(ctx context.Context) ([]City, error) {
	var out []City
	err := s.run(ctx, "list_cities", func(ctx context.Context) (int64, error) {
		return 0, s.store.View(ctx, func(view TransactionView) error {
			out = view.ListCities()
			return nil
		})
	})
	return out, err
}

// GetCity returns a single city or ErrNotFound.
func (s *Service) GetCity(ctx context.Context, id int64) (City, error) {
	var out City
	err := s.run(ctx, "get_city", func(ctx context.Context) (int64, error) {
		return id, s.store.View(ctx, func(view TransactionView) error {
			city, ok := view.FindCity(id)
			if !ok {
				return ErrNotFound{Entity: EntityCity, ID: id}
			}
			out = city
			return nil
		})
	})
	return out, err
}

// CreateCity persists a new city together with its embedded commerces.
func (s *Service) CreateCity(ctx context.Context, city City) (City, Result, error) {
	var (
		created City
		res     Result
	)
	err := s.run(ctx, "create_city", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreateCity(city)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateCity replaces the name and commerce set of an existing city. The
// payload id is ignored in favour of id.
func (s *Service) UpdateCity(ctx context.Context, id int64, city City) (City, Result, error) {
	var (
		updated City
		res     Result
	)
	err := s.run(ctx, "update_city", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateCity(id, func(c *City) error {
				c.Name = city.Name
				c.Commerces = city.Clone().Commerces
				return nil
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteCity removes a city and its commerces. Deleting an id that does not
// exist succeeds without changes.
func (s *Service) DeleteCity(ctx context.Context, id int64) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_city", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := tx.DeleteCity(id); err != nil && !IsNotFound(err) {
				return err
			}
			return nil
		})
		return id, err
	})
	return res, err
}

// ListCommerces returns every commerce ordered by id.
func (s *Service) ListCommerces(ctx context.Context) ([]Commerce, error) {
	var out []Commerce
	err := s.run(ctx, "list_commerces", func(ctx context.Context) (int64, error) {
		return 0, s.store.View(ctx, func(view TransactionView) error {
			out = view.ListCommerces()
			return nil
		})
	})
	return out, err
}

// CreateCommerce persists a commerce under an existing city.
func (s *Service) CreateCommerce(ctx context.Context, commerce Commerce) (Commerce, Result, error) {
	var (
		created Commerce
		res     Result
	)
	err := s.run(ctx, "create_commerce", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreateCommerce(commerce)
			return err
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateCommerce replaces the fields of an existing commerce.
func (s *Service) UpdateCommerce(ctx context.Context, id int64, commerce Commerce) (Commerce, Result, error) {
	var (
		updated Commerce
		res     Result
	)
	err := s.run(ctx, "update_commerce", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateCommerce(id, func(c *Commerce) error {
				*c = commerce
				return nil
			})
			return err
		})
		return id, err
	})
	return updated, res, err
}

// DeleteCommerce removes a commerce record. A missing id is a no-op.
func (s *Service) DeleteCommerce(ctx context.Context, id int64) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_commerce", func(ctx context.Context) (int64, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := tx.DeleteCommerce(id); err != nil && !IsNotFound(err) {
				return err
			}
			return nil
		})
		return id, err
	})
	return res, err
}

// IsNotFound reports whether err carries an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsRuleViolation reports whether err was caused by blocking rule violations.
func IsRuleViolation(err error) bool {
	var rv RuleViolationError
	return errors.As(err, &rv)
}
