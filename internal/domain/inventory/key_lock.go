package inventory

import (
	"sort"
	"sync"
)

// KeyLocker hands out one mutex per StockKey. Entries are reference counted
// and dropped when the last holder unlocks.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[StockKey]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLocker creates an empty locker
func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[StockKey]*keyLock)}
}

// Lock acquires every key in a fixed order and returns the unlock func.
// Duplicate keys are locked once.
func (l *KeyLocker) Lock(keys ...StockKey) func() {
	ordered := sortedUniqueKeys(keys)
	held := make([]*keyLock, 0, len(ordered))
	for _, key := range ordered {
		kl := l.acquire(key)
		kl.mu.Lock()
		held = append(held, kl)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(ordered) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.releaseRef(ordered[i])
			}
		})
	}
}

// Size returns the number of keys currently referenced
func (l *KeyLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *KeyLocker) acquire(key StockKey) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyLocker) releaseRef(key StockKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs <= 0 {
		delete(l.locks, key)
	}
}

func sortedUniqueKeys(keys []StockKey) []StockKey {
	seen := make(map[StockKey]struct{}, len(keys))
	out := make([]StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
