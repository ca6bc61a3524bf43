// Package cart persists per-user cart line items.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tyemirov/tcommerce/internal/catalog"
)

var (
	// ErrItemNotFound indicates the product is not in the user's cart.
	ErrItemNotFound = errors.New("cart.item.not_found")
	// ErrProductUnknown indicates the referenced product does not exist.
	ErrProductUnknown = errors.New("cart.product.unknown")
)

// Item is a single cart line for a user.
type Item struct {
	UserID    string    `json:"userId" gorm:"column:user_id;primaryKey"`
	ProductID string    `json:"productId" gorm:"column:product_id;primaryKey"`
	Quantity  int       `json:"quantity" gorm:"column:quantity;not null;default:1"`
	CreatedAt time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"-" gorm:"column:updated_at"`
}

// TableName pins the cart items table name.
func (Item) TableName() string {
	return "cart_items"
}

// Line is a cart entry joined with its product.
type Line struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Store persists cart items using GORM.
type Store struct {
	db       *gorm.DB
	products *catalog.Store
}

// NewStore migrates the cart table and wraps the connection.
func NewStore(ctx context.Context, gormDB *gorm.DB, products *catalog.Store) (*Store, error) {
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&Item{}); migrateErr != nil {
		return nil, fmt.Errorf("cart.migrate: %w", migrateErr)
	}
	return &Store{db: gormDB, products: products}, nil
}

// Add puts the product in the user's cart, incrementing the quantity
// when the line already exists.
func (store *Store) Add(ctx context.Context, userID string, productID string) (Item, error) {
	if _, productErr := store.products.Get(ctx, productID); productErr != nil {
		if errors.Is(productErr, catalog.ErrProductNotFound) {
			return Item{}, fmt.Errorf("cart.add: %w", ErrProductUnknown)
		}
		return Item{}, fmt.Errorf("cart.add: %w", productErr)
	}

	var item Item
	err := store.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Take(&item).Error
	switch {
	case err == nil:
		item.Quantity++
		if updateErr := store.db.WithContext(ctx).Model(&Item{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Update("quantity", item.Quantity).Error; updateErr != nil {
			return Item{}, fmt.Errorf("cart.add: %w", updateErr)
		}
		return item, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = Item{UserID: userID, ProductID: productID, Quantity: 1}
		if createErr := store.db.WithContext(ctx).Create(&item).Error; createErr != nil {
			return Item{}, fmt.Errorf("cart.add: %w", createErr)
		}
		return item, nil
	default:
		return Item{}, fmt.Errorf("cart.add: %w", err)
	}
}

// UpdateQuantity sets the quantity for a cart line; zero removes it.
func (store *Store) UpdateQuantity(ctx context.Context, userID string, productID string, quantity int) error {
	var item Item
	err := store.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cart.update_quantity: %w", ErrItemNotFound)
		}
		return fmt.Errorf("cart.update_quantity: %w", err)
	}
	if quantity <= 0 {
		return store.Remove(ctx, userID, productID)
	}
	if updateErr := store.db.WithContext(ctx).Model(&Item{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", quantity).Error; updateErr != nil {
		return fmt.Errorf("cart.update_quantity: %w", updateErr)
	}
	return nil
}

// Remove deletes a single cart line.
func (store *Store) Remove(ctx context.Context, userID string, productID string) error {
	result := store.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).Delete(&Item{})
	if result.Error != nil {
		return fmt.Errorf("cart.remove: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("cart.remove: %w", ErrItemNotFound)
	}
	return nil
}

// Clear empties the user's cart.
func (store *Store) Clear(ctx context.Context, userID string) error {
	if err := store.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Item{}).Error; err != nil {
		return fmt.Errorf("cart.clear: %w", err)
	}
	return nil
}

// ListLines returns the user's cart joined with product details. The
// products are fetched in one batched query; lines whose product has
// been deleted since it was carted are dropped from the listing.
func (store *Store) ListLines(ctx context.Context, userID string) ([]Line, error) {
	var items []Item
	if err := store.db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("cart.list: %w", err)
	}
	if len(items) == 0 {
		return []Line{}, nil
	}

	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, productsErr := store.products.ListByIDs(ctx, productIDs)
	if productsErr != nil {
		return nil, fmt.Errorf("cart.list: %w", productsErr)
	}
	productsByID := make(map[string]catalog.Product, len(products))
	for _, product := range products {
		productsByID[product.ID] = product
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		product, found := productsByID[item.ProductID]
		if !found {
			continue
		}
		lines = append(lines, Line{Product: product, Quantity: item.Quantity})
	}
	return lines, nil
}
