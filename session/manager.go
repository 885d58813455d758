// Package session owns the in-memory session table: lookup and
// creation, per-session run exclusivity, listing, clearing, and idle
// eviction. The manager never runs reasoning itself; it hands exclusive
// run ownership to the caller and takes it back on release.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/chronicler-ai/chronicler/core"
	"github.com/chronicler-ai/chronicler/logging"
)

// Options configure a Manager.
type Options struct {
	// IdleTTL is how long a session may sit idle before eviction.
	// Zero disables eviction.
	IdleTTL time.Duration

	// SweepInterval is how often the eviction sweep runs.
	SweepInterval time.Duration

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Manager is the concurrency-safe session table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	running  map[string]bool

	idleTTL time.Duration
	logger  logging.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager constructs a Manager and, when an idle TTL is configured,
// starts the background eviction sweeper. Call Close to stop it.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		IdleTTL:       30 * time.Minute,
		SweepInterval: time.Minute,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	m := &Manager{
		sessions: make(map[string]*core.Session),
		running:  make(map[string]bool),
		idleTTL:  opts.IdleTTL,
		logger:   opts.Logger,
		stop:     make(chan struct{}),
	}
	if opts.IdleTTL > 0 && opts.SweepInterval > 0 {
		go m.sweep(opts.SweepInterval)
	}
	return m
}

// Close stops the eviction sweeper. Sessions remain readable.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Acquire resolves or creates the session for a query run and takes run
// exclusivity. An empty id creates a fresh session; a non-empty id must
// name an existing session and yields ErrSessionNotFound otherwise.
// Returns ErrAlreadyInProgress when the session's previous run has not
// finished.
//
// The caller must call Release with the same id exactly once.
func (m *Manager) Acquire(sessionID, query string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		sess, ok := m.sessions[sessionID]
		if !ok {
			return nil, core.ErrSessionNotFound(sessionID)
		}
		if m.running[sessionID] {
			return nil, core.ErrAlreadyInProgress(sessionID)
		}
		sess.BeginRun(query)
		m.running[sessionID] = true
		return sess, nil
	}

	sess := core.NewSession("", query)
	m.sessions[sess.ID()] = sess
	m.running[sess.ID()] = true
	m.logger.Debug("session created", "session_id", sess.ID())
	return sess, nil
}

// Release returns run exclusivity after a run finishes.
func (m *Manager) Release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.running, sessionID)
}

// Get returns the session for id or ErrSessionNotFound.
func (m *Manager) Get(sessionID string) (*core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound(sessionID)
	}
	return sess, nil
}

// List returns summaries of every session, most recently active first.
func (m *Manager) List() []core.SessionSummary {
	m.mu.Lock()
	sessions := make([]*core.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	summaries := make([]core.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Clear removes a session. A session whose run is in flight cannot be
// cleared; callers wanting to stop it use RequestCancel and retry.
func (m *Manager) Clear(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return core.ErrSessionNotFound(sessionID)
	}
	if m.running[sessionID] {
		return core.ErrAlreadyInProgress(sessionID)
	}
	delete(m.sessions, sessionID)
	m.logger.Debug("session cleared", "session_id", sessionID)
	return nil
}

// ClearAll removes every session not currently running and returns the
// number removed.
func (m *Manager) ClearAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleared := 0
	for id := range m.sessions {
		if m.running[id] {
			continue
		}
		delete(m.sessions, id)
		cleared++
	}
	m.logger.Info("sessions cleared", "count", cleared)
	return cleared
}

// RequestCancel sets the cooperative cancellation flag on a running
// session. The engine honors it at the next step boundary. Calling it
// on an idle session is a no-op beyond the flag.
func (m *Manager) RequestCancel(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound(sessionID)
	}
	sess.RequestCancel()
	return nil
}

// sweep evicts idle sessions until Close.
func (m *Manager) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle(time.Now().UTC())
		}
	}
}

// evictIdle removes sessions idle longer than the TTL. Running sessions
// are never evicted regardless of timestamps.
func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, sess := range m.sessions {
		if m.running[id] {
			continue
		}
		if now.Sub(sess.LastActivity()) > m.idleTTL {
			delete(m.sessions, id)
			evicted++
			m.logger.Info("idle session evicted", "session_id", id, "last_activity", sess.LastActivity())
		}
	}
	return evicted
}
