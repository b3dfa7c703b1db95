package core

import "sync"

// KeyLocks serializes operations per (project, branch) key. The queue
// service, checkout manager, and sync engine all share one registry so that
// a checkout is never mutated while a sync or merge runs on it.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyLocks creates an empty lock registry.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[string]*sync.Mutex)}
}

// QueueKey builds the canonical map key for a (project, branch) pair.
func QueueKey(project, branch string) string {
	return project + "/" + branch
}

// Lock acquires the mutex for (project, branch), creating it on first use,
// and returns the function that releases it.
func (k *KeyLocks) Lock(project, branch string) (unlock func()) {
	key := QueueKey(project, branch)

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
