package authkit

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MemoryUserStore is an in-memory UserStore for tests and local runs.
type MemoryUserStore struct {
	mutex   sync.Mutex
	byID    map[string]Identity
	byEmail map[string]string
}

// NewMemoryUserStore constructs a store with empty maps.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]Identity),
		byEmail: make(map[string]string),
	}
}

// FindByEmail returns the identity for the normalized email.
func (store *MemoryUserStore) FindByEmail(ctx context.Context, email string) (Identity, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	userID, found := store.byEmail[normalizeEmail(email)]
	if !found {
		return Identity{}, fmt.Errorf("user_store.find_by_email: %w", ErrIdentityNotFound)
	}
	return store.byID[userID], nil
}

// FindByID returns the identity for the user id.
func (store *MemoryUserStore) FindByID(ctx context.Context, userID string) (Identity, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	identity, found := store.byID[userID]
	if !found {
		return Identity{}, fmt.Errorf("user_store.find_by_id: %w", ErrIdentityNotFound)
	}
	return identity, nil
}

// Create inserts a new identity with a bcrypt-hashed credential.
func (store *MemoryUserStore) Create(ctx context.Context, name string, email string, password string, role Role) (Identity, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	normalized := normalizeEmail(email)
	if _, exists := store.byEmail[normalized]; exists {
		return Identity{}, fmt.Errorf("user_store.create: %w", ErrEmailTaken)
	}
	hashedBytes, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return Identity{}, fmt.Errorf("user_store.create: %w", hashErr)
	}
	identity := Identity{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        normalized,
		PasswordHash: string(hashedBytes),
		Role:         role,
	}
	store.byID[identity.ID] = identity
	store.byEmail[normalized] = identity.ID
	return identity, nil
}

// VerifyPassword compares the plaintext against the stored bcrypt hash.
func (store *MemoryUserStore) VerifyPassword(ctx context.Context, identity Identity, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) == nil
}

// Delete removes an identity; used to exercise deleted-user token paths.
func (store *MemoryUserStore) Delete(ctx context.Context, userID string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	identity, found := store.byID[userID]
	if !found {
		return
	}
	delete(store.byEmail, identity.Email)
	delete(store.byID, userID)
}
