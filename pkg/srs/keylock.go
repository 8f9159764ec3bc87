package srs

import "sync"

// keyLocks hands out one mutex per (language, word) so reviews of the same
// word never interleave their load/compute/save steps. Entries are dropped
// once no goroutine holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[recordKey]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[recordKey]*refLock)}
}

func (k *keyLocks) lock(key recordKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
