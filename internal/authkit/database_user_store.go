package authkit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DatabaseUserStore persists identities using GORM.
type DatabaseUserStore struct {
	db *gorm.DB
}

// NewDatabaseUserStore migrates the users table and wraps the connection.
func NewDatabaseUserStore(ctx context.Context, gormDB *gorm.DB) (*DatabaseUserStore, error) {
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&Identity{}); migrateErr != nil {
		return nil, fmt.Errorf("user_store.migrate: %w", migrateErr)
	}
	return &DatabaseUserStore{db: gormDB}, nil
}

// FindByEmail locates an identity by its normalized email.
func (store *DatabaseUserStore) FindByEmail(ctx context.Context, email string) (Identity, error) {
	var identity Identity
	err := store.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, fmt.Errorf("user_store.find_by_email: %w", ErrIdentityNotFound)
		}
		return Identity{}, fmt.Errorf("user_store.find_by_email: %w: %w", ErrStoreUnavailable, err)
	}
	return identity, nil
}

// FindByID locates an identity by its id.
func (store *DatabaseUserStore) FindByID(ctx context.Context, userID string) (Identity, error) {
	var identity Identity
	err := store.db.WithContext(ctx).Where("id = ?", userID).Take(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, fmt.Errorf("user_store.find_by_id: %w", ErrIdentityNotFound)
		}
		return Identity{}, fmt.Errorf("user_store.find_by_id: %w: %w", ErrStoreUnavailable, err)
	}
	return identity, nil
}

// Create inserts a new identity with a bcrypt-hashed credential.
func (store *DatabaseUserStore) Create(ctx context.Context, name string, email string, password string, role Role) (Identity, error) {
	normalized := normalizeEmail(email)

	var existing Identity
	lookupErr := store.db.WithContext(ctx).Where("email = ?", normalized).Take(&existing).Error
	if lookupErr == nil {
		return Identity{}, fmt.Errorf("user_store.create: %w", ErrEmailTaken)
	}
	if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
		return Identity{}, fmt.Errorf("user_store.create: %w: %w", ErrStoreUnavailable, lookupErr)
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
	if createErr := store.db.WithContext(ctx).Create(&identity).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return Identity{}, fmt.Errorf("user_store.create: %w", ErrEmailTaken)
		}
		return Identity{}, fmt.Errorf("user_store.create: %w: %w", ErrStoreUnavailable, createErr)
	}
	return identity, nil
}

// VerifyPassword compares the plaintext against the stored bcrypt hash.
func (store *DatabaseUserStore) VerifyPassword(ctx context.Context, identity Identity, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) == nil
}
