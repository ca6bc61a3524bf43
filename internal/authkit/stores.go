package authkit

import (
	"context"
	"time"
)

// Role enumerates the authorization roles an identity can carry.
type Role string

const (
	// RoleCustomer is the default role assigned at signup.
	RoleCustomer Role = "customer"
	// RoleAdmin unlocks catalog management routes.
	RoleAdmin Role = "admin"
)

// Identity is an application user as seen by the session layer.
// PasswordHash never leaves the credential store boundary: it is
// excluded from JSON and stripped by Sanitized before handlers see it.
type Identity struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Name         string    `json:"name" gorm:"column:name;not null"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Role         Role      `json:"role" gorm:"column:role;not null;default:customer"`
	CreatedAt    time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"-" gorm:"column:updated_at"`
}

// TableName pins the identities table name.
func (Identity) TableName() string {
	return "users"
}

// Sanitized returns a copy safe to hand to transport handlers.
func (identity Identity) Sanitized() Identity {
	identity.PasswordHash = ""
	return identity
}

// UserStore persists and retrieves application identities.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (Identity, error)
	FindByID(ctx context.Context, userID string) (Identity, error)
	Create(ctx context.Context, name string, email string, password string, role Role) (Identity, error)
	VerifyPassword(ctx context.Context, identity Identity, password string) bool
}

// SessionTokenStore holds the single currently valid refresh token per user.
// Set overwrites any prior value, which is the rotation/invalidation point.
type SessionTokenStore interface {
	Set(ctx context.Context, userID string, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (string, error)
	Del(ctx context.Context, userID string) error
}
