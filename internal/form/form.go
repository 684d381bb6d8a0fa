// Package form manages the city list cache and the shared create/edit form
// that drives mutations against the /cidades resource.
//
// The manager keeps two pieces of state: the list cache, replaced wholesale by
// every Load, and the form state, either Create or Edit(originalID). Every
// successful mutation resets the form and reloads the list.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"citydesk/internal/core"
	"citydesk/pkg/domain"
)

// Fixed user-facing texts.
const (
	DeletePrompt = "Tem certeza que deseja excluir esta cidade?"

	TitleSuccess  = "Sucesso"
	TitleRemoved  = "Removido"
	DetailCreated = "Cidade adicionada!"
	DetailUpdated = "Cidade atualizada!"
	DetailRemoved = "Cidade excluída!"
)

// Backend is the remote collection resource.
type Backend interface {
	ListCities(ctx context.Context) ([]domain.City, error)
	CreateCity(ctx context.Context, city domain.City) (domain.City, error)
	UpdateCity(ctx context.Context, id int64, city domain.City) (domain.City, error)
	DeleteCity(ctx context.Context, id int64) error
}

// Confirmer asks the user to accept or decline a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Notifier displays fire-and-forget notifications.
type Notifier interface {
	Notify(severity Severity, title, detail string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(severity Severity, title, detail string)

func (f NotifyFunc) Notify(severity Severity, title, detail string) { f(severity, title, detail) }

// ErrNoConfirmer is returned by Remove when no confirmation gate is configured.
var ErrNoConfirmer = errors.New("form: no confirmation gate configured")

// ReloadError reports that a mutation succeeded but the list reload that
// follows it failed. The form has already been reset when it is returned.
type ReloadError struct {
	Op  string
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload after %s: %v", e.Op, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }

// Option configures a Manager.
type Option func(*Manager)

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetricsRecorder injects the recorder observing operation outcomes.
func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(m *Manager) {
		if recorder != nil {
			m.metrics = recorder
		}
	}
}

// Manager owns the list cache and form state. It is safe for concurrent use;
// overlapping operations are not ordered and the last list response to
// arrive wins.
type Manager struct {
	backend Backend
	confirm Confirmer
	notify  Notifier
	logger  *slog.Logger
	metrics core.MetricsRecorder

	mu     sync.RWMutex
	cities []domain.City
	state  State
}

// New constructs a manager in Create mode with an empty list cache.
func New(backend Backend, confirm Confirmer, notify Notifier, opts ...Option) *Manager {
	m := &Manager{
		backend: backend,
		confirm: confirm,
		notify:  notify,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: core.MultiRecorder(),
		cities:  []domain.City{},
		state:   newCreateState(),
	}
	if m.notify == nil {
		m.notify = NotifyFunc(func(Severity, string, string) {})
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) observe(ctx context.Context, op string, start time.Time, err error) {
	m.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		m.logger.Warn("form operation failed", "operation", op, "error", err)
		return
	}
	m.logger.Debug("form operation", "operation", op, "duration", time.Since(start))
}

// Load replaces the list cache with the backend collection. On failure the
// cache is left as it was.
func (m *Manager) Load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { m.observe(ctx, "load", start, err) }()

	cities, err := m.backend.ListCities(ctx)
	if err != nil {
		return fmt.Errorf("load cities: %w", err)
	}
	fresh := domain.CloneCities(cities)
	m.mu.Lock()
	m.cities = fresh
	m.mu.Unlock()
	return nil
}

// Cities returns a copy of the list cache in backend order.
func (m *Manager) Cities() []domain.City {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.CloneCities(m.cities)
}

// StartEdit switches the form to Edit mode over a copy of city.
func (m *Manager) StartEdit(city domain.City) {
	m.mu.Lock()
	m.state = newEditState(city)
	m.mu.Unlock()
	m.logger.Debug("form edit started", "city_id", city.ID)
}

// UpdateDraft applies fn to the working copy. The list cache and the edit
// snapshot are never affected.
func (m *Manager) UpdateDraft(fn func(draft *domain.City)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state.draft)
}

// Form returns a copy of the current form state.
func (m *Manager) Form() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

// Editing reports whether the form is in Edit mode.
func (m *Manager) Editing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.mode == ModeEdit
}

// Reset returns the form to Create mode and reloads the list.
func (m *Manager) Reset(ctx context.Context) error {
	m.clearForm()
	return m.Load(ctx)
}

func (m *Manager) clearForm() {
	m.mu.Lock()
	m.state = newCreateState()
	m.mu.Unlock()
}

// Submit creates or updates the city held by the form, depending on its
// mode. No local validation is done. On failure the form is left untouched
// so the same input can be resubmitted. On success the user is notified, the
// form is reset and the list reloaded; a failed reload yields *ReloadError
// along with the saved city.
func (m *Manager) Submit(ctx context.Context) (saved domain.City, err error) {
	m.mu.RLock()
	state := m.state.clone()
	m.mu.RUnlock()

	op := "create"
	if state.mode == ModeEdit {
		op = "update"
	}
	start := time.Now()
	defer func() {
		var reloadErr *ReloadError
		if errors.As(err, &reloadErr) {
			m.observe(ctx, op, start, nil)
			return
		}
		m.observe(ctx, op, start, err)
	}()

	draft := state.draft
	var detail string
	if state.mode == ModeEdit {
		draft.ID = state.originalID
		saved, err = m.backend.UpdateCity(ctx, state.originalID, draft)
		if err != nil {
			return domain.City{}, fmt.Errorf("update city %d: %w", state.originalID, err)
		}
		detail = DetailUpdated
	} else {
		draft.ID = 0
		saved, err = m.backend.CreateCity(ctx, draft)
		if err != nil {
			return domain.City{}, fmt.Errorf("create city: %w", err)
		}
		detail = DetailCreated
	}

	m.notify.Notify(SeveritySuccess, TitleSuccess, detail)
	if err := m.Reset(ctx); err != nil {
		return saved, &ReloadError{Op: op, Err: err}
	}
	return saved, nil
}

// Remove deletes the city with id after the confirmation gate accepts.
// Declining returns (false, nil) without any backend call. The form is left
// as it is even when it holds the deleted city.
func (m *Manager) Remove(ctx context.Context, id int64) (removed bool, err error) {
	if m.confirm == nil {
		return false, ErrNoConfirmer
	}
	accepted, err := m.confirm.Confirm(ctx, DeletePrompt)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !accepted {
		m.logger.Debug("delete declined", "city_id", id)
		return false, nil
	}

	start := time.Now()
	if err := m.backend.DeleteCity(ctx, id); err != nil {
		err = fmt.Errorf("delete city %d: %w", id, err)
		m.observe(ctx, "delete", start, err)
		return false, err
	}
	m.observe(ctx, "delete", start, nil)

	m.notify.Notify(SeverityWarning, TitleRemoved, DetailRemoved)
	if err := m.Load(ctx); err != nil {
		return true, &ReloadError{Op: "delete", Err: err}
	}
	return true, nil
}
