package authkit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memorySessionEntry struct {
	refreshToken string
	expiresAt    time.Time
}

// MemorySessionStore is an in-memory SessionTokenStore for tests and dev.
type MemorySessionStore struct {
	mutex   sync.Mutex
	entries map[string]memorySessionEntry
	clock   Clock
}

// NewMemorySessionStore constructs an empty in-memory session store.
func NewMemorySessionStore(clock Clock) *MemorySessionStore {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &MemorySessionStore{
		entries: make(map[string]memorySessionEntry),
		clock:   clock,
	}
}

// Set stores the refresh token for the user, overwriting any prior value.
func (store *MemorySessionStore) Set(ctx context.Context, userID string, refreshToken string, ttl time.Duration) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.entries[userID] = memorySessionEntry{
		refreshToken: refreshToken,
		expiresAt:    store.clock.Now().Add(ttl),
	}
	store.sweepLocked()
	return nil
}

// Get returns the stored refresh token or ErrSessionNotFound.
func (store *MemorySessionStore) Get(ctx context.Context, userID string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	entry, found := store.entries[userID]
	if !found {
		return "", fmt.Errorf("session_store.get: %w", ErrSessionNotFound)
	}
	if store.clock.Now().After(entry.expiresAt) {
		delete(store.entries, userID)
		return "", fmt.Errorf("session_store.get: %w", ErrSessionNotFound)
	}
	return entry.refreshToken, nil
}

// Del removes the session record for the user.
func (store *MemorySessionStore) Del(ctx context.Context, userID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, found := store.entries[userID]; !found {
		return fmt.Errorf("session_store.del: %w", ErrSessionNotFound)
	}
	delete(store.entries, userID)
	return nil
}

func (store *MemorySessionStore) sweepLocked() {
	now := store.clock.Now()
	for userID, entry := range store.entries {
		if now.After(entry.expiresAt) {
			delete(store.entries, userID)
		}
	}
}
