package services

import (
	"slices"
	"sync"
)

// securityLocks serializes Apply and Rebuild per security. Lot derivation
// depends on the total transaction order for a security, so two writers on
// the same security must never interleave; disjoint securities may proceed
// in parallel.
type securityLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newSecurityLocks() *securityLocks {
	return &securityLocks{m: make(map[int64]*sync.Mutex)}
}

func (l *securityLocks) get(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	return mu
}

// Lock acquires the locks for the given securities in ascending id order so
// that multi-security actions (mergers, spin-offs) cannot deadlock each
// other. The returned func releases them.
func (l *securityLocks) Lock(ids ...int64) func() {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, id := range sorted {
		mu := l.get(id)
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
