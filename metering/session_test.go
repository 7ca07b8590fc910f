package metering

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achilles-kt/solace-app/ledger"
)

type memStore struct {
	mu       sync.Mutex
	balances map[string]int64
}

func (s *memStore) GetBalance(userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, ledger.ErrAccountNotFound
	}
	return balance, nil
}

func (s *memStore) CreateAccount(userID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
	return nil
}

func (s *memStore) SetBalance(userID string, balance int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var kinds []string
	for _, e := range l.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (l *eventLog) last() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

func newTestRig(t *testing.T, balance int64) (*ledger.Ledger, *Manager, *eventLog) {
	t.Helper()
	store := &memStore{balances: map[string]int64{"user-1": balance}}
	coins := ledger.NewLedger(store, ledger.Options{
		StartingGrant: 30,
		Backoff:       time.Millisecond,
	})
	_, err := coins.Initialize("user-1")
	require.NoError(t, err)

	log := &eventLog{}
	manager := NewManager(coins, ManagerOptions{Notify: log.add})
	return coins, manager, log
}

func minuteTariff(coins int64) Tariff {
	return Tariff{CoinsPerInterval: coins, Interval: time.Minute}
}

func TestSessionLifecycle(t *testing.T) {
	_, manager, log := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, session.State())

	require.NoError(t, session.Connect())
	assert.Equal(t, StateActive, session.State())

	// Connect is idempotent
	require.NoError(t, session.Connect())

	session.Close()
	assert.Equal(t, StateTerminated, session.State())
	assert.Error(t, session.Connect())

	assert.Equal(t, []string{
		EventStateChanged, // connecting
		EventStateChanged, // active
		EventStateChanged, // terminated
	}, log.kinds())
}

// With balance b and tariff c per interval, the session performs exactly
// floor(b/c) successful debits and terminates on the first failed one.
func TestIntervalBillingUntilExhaustion(t *testing.T) {
	coins, manager, log := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	for i := 1; i <= 10; i++ {
		session.tick()
		balance, err := coins.Balance("user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(100-10*i), balance)
		assert.Equal(t, StateActive, session.State())
	}

	// Funds are gone: the next tick terminates without mutating the balance
	session.tick()
	assert.Equal(t, StateTerminated, session.State())
	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	kinds := log.kinds()
	assert.Contains(t, kinds, EventFundsExhausted)
	last, ok := log.last()
	require.True(t, ok)
	assert.Equal(t, EventStateChanged, last.Kind)
	assert.Equal(t, StateTerminated, last.State)

	assert.Equal(t, 10*time.Minute, session.Elapsed())
}

// A tick that fires after termination must not debit.
func TestNoDebitAfterTerminated(t *testing.T) {
	coins, manager, _ := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	for i := 0; i < 3; i++ {
		session.tick()
	}
	session.Close()

	session.tick() // late tick, must be a no-op

	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.Equal(t, 3*time.Minute, session.Elapsed())
}

func TestConnectingDoesNotBill(t *testing.T) {
	coins, manager, _ := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)

	session.tick()
	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

// balance 5, per-message tariff 2: send, send, fail.
func TestPerMessageCharges(t *testing.T) {
	coins, manager, log := newTestRig(t, 5)

	session, err := manager.Open("user-1", 1, Tariff{CoinsPerMessage: 2})
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	require.NoError(t, session.ChargeMessage())
	require.NoError(t, session.ChargeMessage())

	err = session.ChargeMessage()
	assert.ErrorIs(t, err, ErrInsufficientCoins)

	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)

	// The chat session survives a failed message charge
	assert.Equal(t, StateActive, session.State())
	last, ok := log.last()
	require.True(t, ok)
	assert.Equal(t, EventFundsExhausted, last.Kind)
	assert.Equal(t, int64(1), last.Balance)
}

func TestChargeMessageStateGuards(t *testing.T) {
	_, manager, _ := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, Tariff{CoinsPerMessage: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, session.ChargeMessage(), ErrNotConnected)

	require.NoError(t, session.Connect())
	session.Close()
	assert.ErrorIs(t, session.ChargeMessage(), ErrSessionTerminated)
}

// A 15 coins/min tariff drained per second charges one whole coin every
// four ticks and carries the remainder.
func TestSmoothDrainAccrual(t *testing.T) {
	coins, manager, _ := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, Tariff{
		CoinsPerInterval: 15,
		Interval:         time.Minute,
		SmoothDrain:      true,
		DrainTick:        time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	for i := 0; i < 3; i++ {
		session.tick()
	}
	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance, "sub-coin accrual must not debit")

	session.tick()
	balance, err = coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), balance)

	// One full minute drains exactly the per-minute price
	for i := 4; i < 60; i++ {
		session.tick()
	}
	balance, err = coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(85), balance)
	assert.Equal(t, time.Minute, session.Elapsed())
}

func TestSmoothDrainForfeitsRemainderOnClose(t *testing.T) {
	coins, manager, _ := newTestRig(t, 100)

	session, err := manager.Open("user-1", 1, Tariff{
		CoinsPerInterval: 15,
		Interval:         time.Minute,
		SmoothDrain:      true,
		DrainTick:        time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, session.Connect())

	for i := 0; i < 6; i++ {
		session.tick()
	}
	session.Close()

	// 6s at 0.25/s accrued 1.5: one coin charged, the half coin forfeited
	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), balance)
}

func TestManagerEnforcesOneSessionPerPersona(t *testing.T) {
	_, manager, _ := newTestRig(t, 100)

	first, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)

	_, err = manager.Open("user-1", 1, minuteTariff(10))
	assert.ErrorIs(t, err, ErrSessionConflict)

	// A different persona is an independent engagement
	_, err = manager.Open("user-1", 2, minuteTariff(10))
	require.NoError(t, err)

	// Closing frees the slot
	first.Close()
	_, err = manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
}

func TestManagerCloseAll(t *testing.T) {
	_, manager, _ := newTestRig(t, 100)

	s1, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
	s2, err := manager.Open("user-1", 2, minuteTariff(10))
	require.NoError(t, err)

	manager.CloseAll("user-1")
	assert.Equal(t, StateTerminated, s1.State())
	assert.Equal(t, StateTerminated, s2.State())

	_, ok := manager.Get(s1.ID())
	assert.False(t, ok)
}

func TestInvalidTariffRejected(t *testing.T) {
	_, manager, _ := newTestRig(t, 100)

	_, err := manager.Open("user-1", 1, Tariff{CoinsPerInterval: 10})
	assert.ErrorIs(t, err, ErrInvalidTariff)
}

func TestSubscribeDeliversTerminalEvents(t *testing.T) {
	coins, manager, _ := newTestRig(t, 10)

	session, err := manager.Open("user-1", 1, minuteTariff(10))
	require.NoError(t, err)
	events := session.Subscribe()
	require.NoError(t, session.Connect())

	session.tick() // 10 -> 0
	session.tick() // exhausted

	var kinds []string
	for e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, EventStateChanged)
	assert.Contains(t, kinds, EventFundsExhausted)

	balance, err := coins.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}
