package ledger

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	// ErrAccountNotFound is returned by a Store when no record exists for the id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnknownAccount is returned when the ledger is asked to mutate an
	// account that was never initialized. Distinct from a zero balance.
	ErrUnknownAccount = errors.New("account not initialized")
	// ErrInvalidAmount is returned for non-positive mutation amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Store is the durable Balance Store the ledger synchronizes to.
type Store interface {
	GetBalance(userID string) (int64, error) // ErrAccountNotFound when absent
	CreateAccount(userID string, balance int64) error
	SetBalance(userID string, balance int64) error
}

// Journal records every applied mutation. Optional.
type Journal interface {
	Record(userID, kind, reason string, amount, balanceAfter int64) error
}

// Event kinds emitted by the ledger
const (
	EventBalanceChanged     = "balance-changed"
	EventPersistenceWarning = "persistence-warning"
)

// Event notifies listeners of balance changes and persistence trouble.
type Event struct {
	Kind    string
	UserID  string
	Balance int64
	Err     error
}

// DebitResult reports the outcome of TryDebit. A failed debit is a normal
// result, not an error: Balance carries the unchanged balance.
type DebitResult struct {
	OK      bool
	Balance int64
}

type write struct {
	balance int64
}

type account struct {
	balance   int64
	pending   []write
	flushing  bool
	forgotten bool
}

// Ledger is the authoritative in-process view of coin balances. Mutations
// apply to memory synchronously; durability writes are queued per account and
// flushed in issue order by a single in-flight writer, so the Balance Store
// never observes a stale balance overwriting a newer one.
type Ledger struct {
	store   Store
	journal Journal
	grant   int64
	notify  func(Event)

	retries int
	backoff time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	accounts map[string]*account
}

// Options configures a Ledger.
type Options struct {
	StartingGrant int64
	Journal       Journal
	Notify        func(Event)
	Retries       int           // persistence attempts per queued write
	Backoff       time.Duration // initial retry backoff, doubles per attempt
}

func NewLedger(store Store, opts Options) *Ledger {
	if opts.StartingGrant <= 0 {
		opts.StartingGrant = 30
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	l := &Ledger{
		store:    store,
		journal:  opts.Journal,
		grant:    opts.StartingGrant,
		notify:   opts.Notify,
		retries:  opts.Retries,
		backoff:  opts.Backoff,
		accounts: make(map[string]*account),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Initialize loads the account balance from the Balance Store, creating the
// record with the starting grant if none exists. Idempotent per id: once
// cached, subsequent calls return the cached balance without re-granting.
// A store failure is returned to the caller; the account stays unusable.
func (l *Ledger) Initialize(userID string) (int64, error) {
	l.mu.Lock()
	if acct, ok := l.accounts[userID]; ok {
		// A re-login may land while a Forget is still draining; the
		// account is vouched for again, so the flusher must keep it.
		acct.forgotten = false
		balance := acct.balance
		l.mu.Unlock()
		return balance, nil
	}
	l.mu.Unlock()

	balance, err := l.store.GetBalance(userID)
	granted := false
	if errors.Is(err, ErrAccountNotFound) {
		if err := l.store.CreateAccount(userID, l.grant); err != nil {
			return 0, fmt.Errorf("create account: %w", err)
		}
		balance = l.grant
		granted = true
	} else if err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}

	l.mu.Lock()
	if acct, ok := l.accounts[userID]; ok {
		// Lost the race to a concurrent Initialize; keep the cached state.
		acct.forgotten = false
		balance = acct.balance
		l.mu.Unlock()
		return balance, nil
	}
	l.accounts[userID] = &account{balance: balance}
	l.mu.Unlock()

	if granted {
		l.record(userID, "grant", "signup", l.grant, balance)
	}
	return balance, nil
}

// Balance returns the authoritative in-memory balance.
func (l *Ledger) Balance(userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[userID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return acct.balance, nil
}

// Credit increases the balance by amount and queues the durability write.
// Always succeeds for a positive amount on an initialized account.
func (l *Ledger) Credit(userID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	l.mu.Lock()
	acct, ok := l.accounts[userID]
	if !ok {
		l.mu.Unlock()
		return 0, ErrUnknownAccount
	}
	acct.balance += amount
	balance := acct.balance
	l.enqueue(userID, acct, write{balance: balance})
	l.mu.Unlock()

	l.record(userID, "credit", reason, amount, balance)
	l.emit(Event{Kind: EventBalanceChanged, UserID: userID, Balance: balance})
	return balance, nil
}

// TryDebit decrements the balance by amount if covered. Insufficient funds
// performs no mutation and reports OK=false with the unchanged balance. This
// is the sole gate against overspend; nothing else may write the balance.
func (l *Ledger) TryDebit(userID string, amount int64, reason string) (DebitResult, error) {
	if amount <= 0 {
		return DebitResult{}, ErrInvalidAmount
	}
	l.mu.Lock()
	acct, ok := l.accounts[userID]
	if !ok {
		l.mu.Unlock()
		return DebitResult{}, ErrUnknownAccount
	}
	if acct.balance < amount {
		balance := acct.balance
		l.mu.Unlock()
		return DebitResult{OK: false, Balance: balance}, nil
	}
	acct.balance -= amount
	balance := acct.balance
	l.enqueue(userID, acct, write{balance: balance})
	l.mu.Unlock()

	l.record(userID, "debit", reason, amount, balance)
	l.emit(Event{Kind: EventBalanceChanged, UserID: userID, Balance: balance})
	return DebitResult{OK: true, Balance: balance}, nil
}

// Forget drops the cached account, e.g. on logout. Pending writes still
// flush; the next Initialize reloads from the store without re-granting.
func (l *Ledger) Forget(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[userID]
	if !ok {
		return
	}
	if !acct.flushing && len(acct.pending) == 0 {
		delete(l.accounts, userID)
		return
	}
	// Flusher still draining; it drops the entry once the queue empties.
	acct.forgotten = true
}

// Sync blocks until every queued durability write has been flushed.
func (l *Ledger) Sync() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		busy := false
		for _, acct := range l.accounts {
			if acct.flushing || len(acct.pending) > 0 {
				busy = true
				break
			}
		}
		if !busy {
			return
		}
		l.cond.Wait()
	}
}

// enqueue queues a write for the account and starts the flusher if idle.
// Writes carry absolute balances, so only the newest one matters: the queue
// holds at most the head (possibly in flight) and the latest balance, and a
// newer write overwrites the waiting one. A store outage therefore retries
// two writes instead of accumulating one per mutation. Caller holds l.mu.
func (l *Ledger) enqueue(userID string, acct *account, w write) {
	if len(acct.pending) > 1 {
		acct.pending[len(acct.pending)-1] = w
	} else {
		acct.pending = append(acct.pending, w)
	}
	if !acct.flushing {
		acct.flushing = true
		go l.flush(userID, acct)
	}
}

// flush drains the account's queue one write at a time, preserving issue
// order. A write that exhausts its retries is re-queued at the head behind a
// warning event so drift is surfaced rather than silently accumulated.
func (l *Ledger) flush(userID string, acct *account) {
	for {
		l.mu.Lock()
		if len(acct.pending) == 0 {
			acct.flushing = false
			if acct.forgotten {
				delete(l.accounts, userID)
			}
			l.cond.Broadcast()
			l.mu.Unlock()
			return
		}
		w := acct.pending[0]
		l.mu.Unlock()

		if err := l.persist(userID, w.balance); err != nil {
			l.emit(Event{Kind: EventPersistenceWarning, UserID: userID, Balance: w.balance, Err: err})
			log.Printf("ledger: persisting balance for %s failed, will retry: %v", userID, err)
			time.Sleep(l.backoff)
			continue
		}

		l.mu.Lock()
		acct.pending = acct.pending[1:]
		l.mu.Unlock()
	}
}

func (l *Ledger) persist(userID string, balance int64) error {
	var err error
	backoff := l.backoff
	for attempt := 0; attempt < l.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		if err = l.store.SetBalance(userID, balance); err == nil {
			return nil
		}
	}
	return err
}

func (l *Ledger) record(userID, kind, reason string, amount, balanceAfter int64) {
	if l.journal == nil {
		return
	}
	if err := l.journal.Record(userID, kind, reason, amount, balanceAfter); err != nil {
		log.Printf("ledger: journaling %s for %s failed: %v", kind, userID, err)
	}
}

func (l *Ledger) emit(e Event) {
	if l.notify != nil {
		l.notify(e)
	}
}
