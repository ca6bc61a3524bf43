// Package authkitredis provides the Redis-backed session token store.
// The store holds at most one live refresh token per user; the key TTL
// matches the refresh token lifetime so revocation is implicit on expiry.
package authkitredis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tyemirov/tcommerce/internal/authkit"
)

const sessionKeyPrefix = "refresh_token:"

// SessionStore implements authkit.SessionTokenStore over Redis.
type SessionStore struct {
	client redis.UniversalClient
}

// NewSessionStore wraps an existing Redis client.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("session_store.connect: %w: %w", authkit.ErrStoreUnavailable, pingErr)
	}
	return client, nil
}

// Set stores the refresh token under the user's key, overwriting any
// prior value. Single-key SET is atomic in Redis, which is the only
// consistency the session lifecycle relies on.
func (store *SessionStore) Set(ctx context.Context, userID string, refreshToken string, ttl time.Duration) error {
	if err := store.client.Set(ctx, sessionKeyPrefix+userID, refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("session_store.set: %w: %w", authkit.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the stored refresh token or authkit.ErrSessionNotFound.
func (store *SessionStore) Get(ctx context.Context, userID string) (string, error) {
	value, err := store.client.Get(ctx, sessionKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("session_store.get: %w", authkit.ErrSessionNotFound)
		}
		return "", fmt.Errorf("session_store.get: %w: %w", authkit.ErrStoreUnavailable, err)
	}
	return value, nil
}

// Del removes the session record for the user.
func (store *SessionStore) Del(ctx context.Context, userID string) error {
	removed, err := store.client.Del(ctx, sessionKeyPrefix+userID).Result()
	if err != nil {
		return fmt.Errorf("session_store.del: %w: %w", authkit.ErrStoreUnavailable, err)
	}
	if removed == 0 {
		return fmt.Errorf("session_store.del: %w", authkit.ErrSessionNotFound)
	}
	return nil
}

// Health verifies the Redis connection.
func (store *SessionStore) Health(ctx context.Context) error {
	return store.client.Ping(ctx).Err()
}
