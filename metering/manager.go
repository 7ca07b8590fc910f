package metering

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSessionConflict is returned when the user already has an active session
// with the persona.
var ErrSessionConflict = errors.New("session already open for this persona")

// Manager owns every live metering session. It enforces at most one active
// session per (user, persona) pair; sessions for different personas may run
// concurrently and bill independently.
type Manager struct {
	debit  Debiter
	notify func(Event)
	ticks  <-chan time.Time // test override propagated to sessions

	mu       sync.Mutex
	byPair   map[string]*Session
	byID     map[uuid.UUID]*Session
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Notify func(Event)
	Ticks  <-chan time.Time
}

func NewManager(debit Debiter, opts ManagerOptions) *Manager {
	return &Manager{
		debit:  debit,
		notify: opts.Notify,
		ticks:  opts.Ticks,
		byPair: make(map[string]*Session),
		byID:   make(map[uuid.UUID]*Session),
	}
}

// Open creates a session in the connecting state. The tariff is frozen for
// the session's lifetime; re-pricing requires a new engagement.
func (m *Manager) Open(userID string, personaID uint64, tariff Tariff) (*Session, error) {
	if tariff.Metered() && tariff.Interval <= 0 {
		return nil, ErrInvalidTariff
	}

	s := &Session{
		id:          uuid.New(),
		userID:      userID,
		personaID:   personaID,
		tariff:      tariff,
		debit:       m.debit,
		notify:      m.notify,
		onTerminate: m.remove,
		state:       StateConnecting,
		accrued:     decimal.Zero,
		perTick:     tariff.perTick(),
		ticks:       m.ticks,
	}

	key := pairKey(userID, personaID)
	m.mu.Lock()
	if _, busy := m.byPair[key]; busy {
		m.mu.Unlock()
		return nil, ErrSessionConflict
	}
	m.byPair[key] = s
	m.byID[s.id] = s
	m.mu.Unlock()

	s.emit(Event{Kind: EventStateChanged, State: StateConnecting})
	return s, nil
}

// Get looks a session up by id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	return s, ok
}

// Lookup finds the live session for a (user, persona) pair.
func (m *Manager) Lookup(userID string, personaID uint64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byPair[pairKey(userID, personaID)]
	return s, ok
}

// CloseAll terminates every session for a user, e.g. on logout.
func (m *Manager) CloseAll(userID string) {
	m.mu.Lock()
	var sessions []*Session
	for _, s := range m.byID {
		if s.userID == userID {
			sessions = append(sessions, s)
		}
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(s.userID, s.personaID)
	if cur, ok := m.byPair[key]; ok && cur == s {
		delete(m.byPair, key)
	}
	delete(m.byID, s.id)
}

func pairKey(userID string, personaID uint64) string {
	return fmt.Sprintf("%s/%d", userID, personaID)
}
