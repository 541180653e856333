package service

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes transition-issuing operations per payment id, so two
// concurrent Execute calls cannot both observe PENDING and both proceed.
// Entries are reference counted and removed when the last holder releases,
// keeping the map bounded by in-flight operations.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the per-key lock and returns its release function.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
