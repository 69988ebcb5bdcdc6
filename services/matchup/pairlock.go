package matchup

import "sync"

// pairKey builds the lock key for an unordered user pair. Sorting the ids
// makes propose(A,B) and propose(B,A) contend on the same lock.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

// pairLocks hands out one mutex per user pair on demand. Entries are
// reference-counted and dropped on final release, so the map only holds
// pairs with an operation in flight. Independent pairs never contend.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// acquire blocks until the pair's lock is held and returns the release
// function. Callers must release on every exit path.
func (p *pairLocks) acquire(a, b string) func() {
	key := pairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
