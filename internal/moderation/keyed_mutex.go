package moderation

import (
	"sync"

	"github.com/iamwavecut/gmbot/internal/db"
)

// keyedMutex serializes read-modify-write sequences per (chat, user) key
// while leaving distinct keys fully parallel. Entries are never evicted;
// the population is bounded by the moderated membership.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[db.MemberKey]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[db.MemberKey]*sync.Mutex{}}
}

func (k *keyedMutex) Lock(key db.MemberKey) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
