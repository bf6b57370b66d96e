package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/journey/internal/logging"
	"github.com/aretw0/journey/pkg/domain"
	"github.com/aretw0/journey/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock is held when no TTL is configured.
const DefaultLockTTL = 30 * time.Second

// Engine is the interpreter the Manager drives.
type Engine interface {
	Start(wf *domain.Workflow) *domain.Session
	Step(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.StepResult, error)
	ProvideInput(sess *domain.Session, requestID string, value domain.Value) (*domain.Session, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// Every read-modify-write of a session runs under a per-session lock, plus a
// distributed lock when one is configured. Locks are reference counted and
// dropped when unused.
type Manager struct {
	store  ports.SessionStore
	loader ports.WorkflowLoader
	engine Engine

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager that loads workflows from loader,
// runs them with engine and persists sessions in store.
func NewManager(store ports.SessionStore, loader ports.WorkflowLoader, engine Engine, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		loader:  loader,
		engine:  engine,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Start creates a session for workflowID, seeds it with vars and runs the
// first step. The session is persisted before returning.
func (m *Manager) Start(ctx context.Context, workflowID string, vars domain.Bindings) (*domain.StepResult, error) {
	wf, err := m.loader.Load(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	sess := m.engine.Start(wf)
	if sess.WorkflowID == "" {
		sess.WorkflowID = workflowID
	}
	for k, v := range vars {
		sess.Variables[k] = v
	}

	var res *domain.StepResult
	err = m.WithLock(ctx, sess.ID, func(ctx context.Context) error {
		res, err = m.advance(ctx, wf, sess)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("Session started", "session_id", sess.ID, "workflow_id", workflowID, "status", res.Session.Status)
	return res, nil
}

// Step resumes a stored session and runs it until it suspends or closes.
func (m *Manager) Step(ctx context.Context, sessionID string) (*domain.StepResult, error) {
	var res *domain.StepResult
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, wf, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		res, err = m.advance(ctx, wf, sess)
		return err
	})
	return res, err
}

// Input answers the pending input request of a stored session and runs the
// next step. requestID is optional.
func (m *Manager) Input(ctx context.Context, sessionID, requestID string, value domain.Value) (*domain.StepResult, error) {
	var res *domain.StepResult
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		sess, wf, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		next, err := m.engine.ProvideInput(sess, requestID, value)
		if err != nil {
			return err
		}
		res, err = m.advance(ctx, wf, next)
		return err
	})
	return res, err
}

func (m *Manager) load(ctx context.Context, sessionID string) (*domain.Session, *domain.Workflow, error) {
	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	wf, err := m.loader.Load(ctx, sess.WorkflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return sess, wf, nil
}

func (m *Manager) advance(ctx context.Context, wf *domain.Workflow, sess *domain.Session) (*domain.StepResult, error) {
	res, err := m.engine.Step(ctx, wf, sess)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, res.Session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if res.Session.Error != nil {
		m.logger.Warn("Session failed", "session_id", sess.ID, "err", res.Session.Error)
	}
	return res, nil
}

// Get retrieves a stored session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		sess, err = m.store.Load(ctx, sessionID)
		return err
	})
	return sess, err
}

// Workflow returns the definition a stored session runs.
func (m *Manager) Workflow(ctx context.Context, sessionID string) (*domain.Workflow, error) {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.loader.Load(ctx, sess.WorkflowID)
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Loader returns the workflow catalog.
func (m *Manager) Loader() ports.WorkflowLoader {
	return m.loader
}

// IsClientError reports whether err is caused by the caller (unknown session or
// workflow, input at the wrong time) rather than by infrastructure.
func IsClientError(err error) bool {
	for _, target := range []error{
		domain.ErrSessionNotFound, domain.ErrWorkflowNotFound, domain.ErrNotAwaitingInput,
		domain.ErrInputPending, domain.ErrSessionClosed, domain.ErrInputMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
