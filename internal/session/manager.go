package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown, malformed or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session holds the state of one connected page.
type Session struct {
	id uuid.UUID

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	lastSeen time.Time
	now      func() time.Time
}

// apply runs ev through Reduce. Callers hold s.mu.
func (s *Session) apply(ev Event) State {
	s.state = Reduce(s.state, ev)
	s.lastSeen = s.now()
	return s.state
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// stop cancels the in-flight balance fetch, if any.
func (s *Session) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Manager keeps the open sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	defaultRecipient common.Address
	ttl              time.Duration
	now              func() time.Time
}

// NewManager creates a registry whose sessions start with defaultRecipient and
// are evicted after ttl without activity. A zero ttl keeps sessions forever.
func NewManager(defaultRecipient common.Address, ttl time.Duration) *Manager {
	return &Manager{
		sessions:         make(map[uuid.UUID]*Session),
		defaultRecipient: defaultRecipient,
		ttl:              ttl,
		now:              time.Now,
	}
}

// Open creates a new disconnected session.
func (m *Manager) Open() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()

	id := uuid.New()
	s := &Session{
		id: id,
		state: State{
			ID:        id.String(),
			Recipient: m.defaultRecipient,
			Status:    BalanceEmpty,
		},
		lastSeen: m.now(),
		now:      m.now,
	}
	m.sessions[id] = s
	return s
}

// Get looks up a session by its string id.
func (m *Manager) Get(id string) (*Session, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close drops a session and cancels its in-flight balance fetch.
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	s.stop()
	return nil
}

// count reports the number of open sessions.
func (m *Manager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			s.stop()
		}
	}
}
