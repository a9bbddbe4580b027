package locker

import "sync"

// KeyedLocker hands out one mutex per key so writers to different datasets
// never block each other. Idle keys are dropped once released.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new keyed locker.
func New() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*entry)}
}

// Lock acquires the lock for key and returns its release function.
func (k *KeyedLocker) Lock(key string) func() {
	e := k.acquire(key)
	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.release(key, e)
		})
	}
}

// Len reports how many keys are currently held or waited on.
func (k *KeyedLocker) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func (k *KeyedLocker) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedLocker) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 && k.locks[key] == e {
		delete(k.locks, key)
	}
}
