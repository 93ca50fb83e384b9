package vault

import "sync"

// keyedMutex serializes writers per slot. Operations on different keys never
// block each other; entries are retained for the life of the service, bounded
// by the number of distinct slots.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[Key]*sync.Mutex)}
}

// lock acquires the slot lock and returns its unlock function.
func (k *keyedMutex) lock(key Key) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
