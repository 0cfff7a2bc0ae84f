package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/domain"
	"github.com/aretw0/anamnesis/pkg/ports"
)

const (
	DefaultLockTimeout = 2 * time.Second
	DefaultLockTTL     = 30 * time.Second
)

// lockEntry holds the semaphore and the reference count.
type lockEntry struct {
	sem  chan struct{}
	refs int
}

// Manager orchestrates consultation access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	lockTimeout time.Duration

	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTimeout bounds how long an operation waits for a busy consultation.
// Zero waits until the context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTimeout = d
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = d
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator replaces the UUID generator used by Create.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		m.now = fn
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		lockTimeout: DefaultLockTimeout,
		logger:      logging.NewNop(), // Default to no-op
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager clock reading in UTC.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST call release(id) when done with the entry.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Create starts a new active consultation positioned at root and persists it.
// A terminal root makes its diagnosis the candidate straight away.
func (m *Manager) Create(ctx context.Context, patientID, doctorID string, root domain.DecisionNode) (*domain.Consultation, error) {
	c := domain.NewConsultation(m.newID(), patientID, doctorID, root.ID, m.Now())
	if root.IsTerminal() {
		c.DiagnosisCandidate = root.Diagnosis
	}
	err := m.WithLock(ctx, c.ID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, c); err != nil {
			return fmt.Errorf("failed to create consultation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get reads a consultation without locking. The snapshot may be stale by the time it is used.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Consultation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewError(domain.KindValidation, "get", "session id is required")
	}
	c, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return c, nil
}

// UpdateFunc computes the next value of a consultation.
// Returning nil means nothing changed and nothing is saved.
type UpdateFunc func(c *domain.Consultation) (*domain.Consultation, error)

// Update performs a locked read-modify-write of the consultation and returns the stored result.
func (m *Manager) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Consultation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewError(domain.KindValidation, "update", "session id is required")
	}

	var result *domain.Consultation
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}

		next, err := fn(current.Clone())
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}

		next.Version = current.Version
		if err := m.store.Save(ctx, next); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return &domain.Error{
					Kind:    domain.KindConcurrency,
					Op:      "save",
					Message: "consultation was modified concurrently",
					Err:     err,
				}
			}
			return fmt.Errorf("save %s: %w", id, err)
		}
		result = next
		return nil
	})
	return result, err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context, filter ports.ListFilter) ([]*domain.Consultation, error) {
	return m.store.List(ctx, filter)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes fn while holding the lock for the consultation.
// Waiting longer than the lock timeout yields a concurrency error.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	waitCtx := ctx
	if m.lockTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.lockTimeout)
		defer cancel()
	}

	entry := m.acquire(id)
	select {
	case entry.sem <- struct{}{}:
	case <-waitCtx.Done():
		m.release(id)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.Errorf(domain.KindConcurrency, "lock", "consultation %s is busy", id)
	}
	defer func() {
		<-entry.sem
		m.release(id)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(waitCtx, id, m.lockTTL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &domain.Error{Kind: domain.KindConcurrency, Op: "lock", Message: "failed to acquire distributed lock", Err: err}
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
