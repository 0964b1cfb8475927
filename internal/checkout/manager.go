package checkout

import (
	"sync"
	"time"
)

// releasedTxnGrace is how long a released session stays resolvable by
// transaction ref, so late duplicate provider redirects still observe the
// terminal outcome instead of "not found".
const releasedTxnGrace = 15 * time.Minute

// Manager enforces at most one in-flight session per user and indexes live
// machines by transaction id so unauthenticated provider callbacks can find
// them. No locking beyond this map is needed: only one session per user is
// ever in flight.
type Manager struct {
	mu     sync.Mutex
	byUser map[int64]*Machine
	byTxn  map[string]*txnEntry
	grace  time.Duration
}

// txnEntry pins a machine under its transaction ref. expiresAt stays zero
// while the owning user slot is held; Release starts the grace clock.
type txnEntry struct {
	machine   *Machine
	expiresAt time.Time
}

func NewManager() *Manager {
	return &Manager{
		byUser: make(map[int64]*Machine),
		byTxn:  make(map[string]*txnEntry),
		grace:  releasedTxnGrace,
	}
}

// Track registers a freshly created machine. A user with a live
// non-terminal session is refused; a terminal leftover is evicted.
func (mgr *Manager) Track(userID int64, m *Machine) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	mgr.sweepLocked(time.Now())

	if existing, ok := mgr.byUser[userID]; ok {
		if !existing.Session().Status.Terminal() {
			return ErrSessionInFlight
		}
		for ref, e := range mgr.byTxn {
			if e.machine == existing {
				delete(mgr.byTxn, ref)
			}
		}
	}
	mgr.byUser[userID] = m
	return nil
}

// Bind indexes the machine under its transaction id once initiation has
// assigned one.
func (mgr *Manager) Bind(transactionID string, m *Machine) {
	if transactionID == "" {
		return
	}
	mgr.mu.Lock()
	mgr.byTxn[transactionID] = &txnEntry{machine: m}
	mgr.mu.Unlock()
}

func (mgr *Manager) Active(userID int64) (*Machine, bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	m, ok := mgr.byUser[userID]
	return m, ok
}

func (mgr *Manager) ByTransaction(transactionID string) (*Machine, bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	e, ok := mgr.byTxn[transactionID]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(mgr.byTxn, transactionID)
		return nil, false
	}
	return e.machine, true
}

// Release drops a user's session (terminal or abandoned). Its transaction
// index entries get a grace deadline rather than vanishing immediately, and
// are dropped on expiry so the index cannot grow without bound.
func (mgr *Manager) Release(userID int64) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	m, ok := mgr.byUser[userID]
	delete(mgr.byUser, userID)
	if !ok {
		return
	}

	deadline := time.Now().Add(mgr.grace)
	for _, e := range mgr.byTxn {
		if e.machine == m && e.expiresAt.IsZero() {
			e.expiresAt = deadline
		}
	}
}

// sweepLocked drops expired entries. Callers hold the lock.
func (mgr *Manager) sweepLocked(now time.Time) {
	for ref, e := range mgr.byTxn {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(mgr.byTxn, ref)
		}
	}
}
