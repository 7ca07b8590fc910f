package metering

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/achilles-kt/solace-app/ledger"
)

var (
	// ErrSessionTerminated is returned for operations on a closed session.
	ErrSessionTerminated = errors.New("session terminated")
	// ErrInsufficientCoins is returned when a per-message charge fails.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrInvalidTariff is returned for an interval rate with no interval.
	ErrInvalidTariff = errors.New("interval tariff requires a positive interval")
	// ErrNotConnected is returned when a message is charged before connect.
	ErrNotConnected = errors.New("session not connected")
)

// Session states
type State string

const (
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateTerminated State = "terminated"
)

// Event kinds emitted by sessions
const (
	EventStateChanged   = "session-state-changed"
	EventFundsExhausted = "funds-exhausted"
)

// Event notifies listeners of session transitions and exhausted funds.
type Event struct {
	SessionID uuid.UUID
	UserID    string
	PersonaID uint64
	Kind      string
	State     State
	Balance   int64 // last known balance on funds-exhausted
}

// Debiter is the slice of the ledger a session needs.
type Debiter interface {
	TryDebit(userID string, amount int64, reason string) (ledger.DebitResult, error)
}

// Session converts wall-clock time and outbound messages into ledger debits
// for one open engagement. It starts in connecting, ticks while active, and
// never debits again once terminated: the terminal transition and every tick
// run under the same mutex, so a tick landing after Close is a no-op.
type Session struct {
	id        uuid.UUID
	userID    string
	personaID uint64
	tariff    Tariff
	debit     Debiter

	onTerminate func(*Session)
	notify      func(Event) // manager-wide listener

	mu      sync.Mutex
	state   State
	elapsed time.Duration
	accrued decimal.Decimal
	perTick decimal.Decimal
	ticker  *time.Ticker
	ticks   <-chan time.Time // test override for the clock source
	done    chan struct{}
	subs    []chan Event
}

func (s *Session) ID() uuid.UUID    { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) PersonaID() uint64 { return s.personaID }
func (s *Session) Tariff() Tariff   { return s.tariff }

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the billed active time so far.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Subscribe returns a channel of session events. The channel closes when the
// session terminates. Slow subscribers drop events rather than block billing.
func (s *Session) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 16)
	if s.state == StateTerminated {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// Connect transitions connecting to active and starts the billing clock.
// Text chat connects immediately; calls connect after their setup handshake.
func (s *Session) Connect() error {
	s.mu.Lock()
	switch s.state {
	case StateTerminated:
		s.mu.Unlock()
		return ErrSessionTerminated
	case StateActive:
		s.mu.Unlock()
		return nil
	}
	s.state = StateActive
	if s.tariff.Metered() {
		s.done = make(chan struct{})
		ticks := s.ticks
		if ticks == nil {
			s.ticker = time.NewTicker(s.tariff.tickEvery())
			ticks = s.ticker.C
		}
		go s.run(ticks, s.done)
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventStateChanged, State: StateActive})
	return nil
}

// Close terminates the session from any state and stops the clock. Safe to
// call repeatedly; only the first call emits the terminal transition.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.terminateLocked() {
		s.mu.Unlock()
		return
	}
	subs := s.takeSubsLocked()
	s.mu.Unlock()

	s.finish(subs, Event{Kind: EventStateChanged, State: StateTerminated})
}

// ChargeMessage debits the per-message rate before an outbound message may
// be sent. On insufficient funds nothing is charged, a funds-exhausted event
// fires and ErrInsufficientCoins is returned; the session itself stays open
// so the user can top up and continue.
func (s *Session) ChargeMessage() error {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return ErrSessionTerminated
	}
	if s.state == StateConnecting {
		s.mu.Unlock()
		return ErrNotConnected
	}
	amount := s.tariff.CoinsPerMessage
	if amount <= 0 {
		s.mu.Unlock()
		return nil
	}
	res, err := s.debit.TryDebit(s.userID, amount, s.billingReason())
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if !res.OK {
		s.emit(Event{Kind: EventFundsExhausted, Balance: res.Balance})
		return ErrInsufficientCoins
	}
	return nil
}

// tick bills one clock interval. Called by the clock goroutine; tests drive
// it directly for determinism.
func (s *Session) tick() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}

	due := int64(0)
	if s.tariff.SmoothDrain {
		s.accrued = s.accrued.Add(s.perTick)
		if whole := s.accrued.IntPart(); whole >= 1 {
			due = whole
			s.accrued = s.accrued.Sub(decimal.NewFromInt(whole))
		}
	} else {
		due = s.tariff.CoinsPerInterval
	}
	if due == 0 {
		s.elapsed += s.tariff.tickEvery()
		s.mu.Unlock()
		return
	}

	res, err := s.debit.TryDebit(s.userID, due, s.billingReason())
	if err != nil {
		log.Printf("metering: debit for session %s failed: %v", s.id, err)
		s.terminateLocked()
		subs := s.takeSubsLocked()
		s.mu.Unlock()
		s.finish(subs, Event{Kind: EventStateChanged, State: StateTerminated})
		return
	}
	if !res.OK {
		s.terminateLocked()
		subs := s.takeSubsLocked()
		s.mu.Unlock()
		s.finish(subs,
			Event{Kind: EventFundsExhausted, Balance: res.Balance},
			Event{Kind: EventStateChanged, State: StateTerminated})
		return
	}
	s.elapsed += s.tariff.tickEvery()
	s.mu.Unlock()
}

func (s *Session) run(ticks <-chan time.Time, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ticks:
			s.tick()
		}
	}
}

// terminateLocked flips to terminated and stops the clock. Caller holds mu.
// Reports whether this call performed the transition.
func (s *Session) terminateLocked() bool {
	if s.state == StateTerminated {
		return false
	}
	s.state = StateTerminated
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	return true
}

func (s *Session) takeSubsLocked() []chan Event {
	subs := s.subs
	s.subs = nil
	return subs
}

// finish emits the terminal events to remaining subscribers, closes them and
// deregisters the session.
func (s *Session) finish(subs []chan Event, events ...Event) {
	for _, e := range events {
		e = s.stamp(e)
		for _, ch := range subs {
			select {
			case ch <- e:
			default:
			}
		}
		s.broadcast(e)
	}
	for _, ch := range subs {
		close(ch)
	}
	if s.onTerminate != nil {
		s.onTerminate(s)
	}
}

func (s *Session) emit(e Event) {
	e = s.stamp(e)
	s.mu.Lock()
	subs := append([]chan Event(nil), s.subs...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
	s.broadcast(e)
}

func (s *Session) broadcast(e Event) {
	if s.notify != nil {
		s.notify(e)
	}
}

func (s *Session) stamp(e Event) Event {
	e.SessionID = s.id
	e.UserID = s.userID
	e.PersonaID = s.personaID
	return e
}

func (s *Session) billingReason() string {
	return fmt.Sprintf("persona:%d", s.personaID)
}
