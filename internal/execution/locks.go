package execution

import "sync"

// accountLocks hands out one mutex per account id. Entries are dropped once
// no goroutine holds or waits for them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*lockEntry)}
}

// lock blocks until the account's mutex is held and returns its release func.
func (l *accountLocks) lock(accountID int64) func() {
	l.mu.Lock()
	e, ok := l.locks[accountID]
	if !ok {
		e = &lockEntry{}
		l.locks[accountID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, accountID)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
