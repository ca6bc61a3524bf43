// Package coupon manages per-user discount coupons.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrCouponNotFound indicates no active coupon matched the lookup.
	ErrCouponNotFound = errors.New("coupon.not_found")
	// ErrCouponExpired indicates the coupon's expiry has passed.
	ErrCouponExpired = errors.New("coupon.expired")
	// ErrInvalidDiscount indicates the discount percentage is out of range.
	ErrInvalidDiscount = errors.New("coupon.invalid_discount")
)

// maxDiscountPercent caps the percent-off a coupon may carry.
const maxDiscountPercent = 10

// Coupon is a single-user percent-off discount with an expiry.
type Coupon struct {
	ID              string    `json:"id" gorm:"column:id;primaryKey"`
	Code            string    `json:"code" gorm:"column:code;uniqueIndex;not null"`
	DiscountPercent int       `json:"discountPercent" gorm:"column:discount_percent;not null"`
	ExpiresAt       time.Time `json:"expiresAt" gorm:"column:expires_at;not null"`
	IsActive        bool      `json:"isActive" gorm:"column:is_active;not null;default:true"`
	UserID          string    `json:"userId" gorm:"column:user_id;index;not null"`
	CreatedAt       time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"-" gorm:"column:updated_at"`
}

// TableName pins the coupons table name.
func (Coupon) TableName() string {
	return "coupons"
}

// Store persists coupons using GORM.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore migrates the coupons table and wraps the connection.
func NewStore(ctx context.Context, gormDB *gorm.DB) (*Store, error) {
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&Coupon{}); migrateErr != nil {
		return nil, fmt.Errorf("coupon.migrate: %w", migrateErr)
	}
	return &Store{db: gormDB, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Create inserts a new coupon for a user.
func (store *Store) Create(ctx context.Context, code string, discountPercent int, expiresAt time.Time, userID string) (Coupon, error) {
	if discountPercent <= 0 || discountPercent > maxDiscountPercent {
		return Coupon{}, fmt.Errorf("coupon.create: %w", ErrInvalidDiscount)
	}
	record := Coupon{
		ID:              uuid.NewString(),
		Code:            code,
		DiscountPercent: discountPercent,
		ExpiresAt:       expiresAt,
		IsActive:        true,
		UserID:          userID,
	}
	if err := store.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Coupon{}, fmt.Errorf("coupon.create: %w", err)
	}
	return record, nil
}

// ActiveForUser returns the user's active coupon.
func (store *Store) ActiveForUser(ctx context.Context, userID string) (Coupon, error) {
	var record Coupon
	err := store.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Coupon{}, fmt.Errorf("coupon.active_for_user: %w", ErrCouponNotFound)
		}
		return Coupon{}, fmt.Errorf("coupon.active_for_user: %w", err)
	}
	return record, nil
}

// Validate checks the code for the user. An expired coupon is
// deactivated on the spot and reported as expired.
func (store *Store) Validate(ctx context.Context, code string, userID string) (Coupon, error) {
	var record Coupon
	err := store.db.WithContext(ctx).
		Where("code = ? AND user_id = ? AND is_active = ?", code, userID, true).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Coupon{}, fmt.Errorf("coupon.validate: %w", ErrCouponNotFound)
		}
		return Coupon{}, fmt.Errorf("coupon.validate: %w", err)
	}
	if record.ExpiresAt.Before(store.now()) {
		if deactivateErr := store.db.WithContext(ctx).Model(&Coupon{}).
			Where("id = ?", record.ID).
			Update("is_active", false).Error; deactivateErr != nil {
			return Coupon{}, fmt.Errorf("coupon.validate: %w", deactivateErr)
		}
		return Coupon{}, fmt.Errorf("coupon.validate: %w", ErrCouponExpired)
	}
	return record, nil
}
