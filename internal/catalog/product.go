// Package catalog implements the product catalog: CRUD over the
// relational store plus a Redis read-through cache for featured products.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound indicates no product exists for the id.
	ErrProductNotFound = errors.New("catalog.product.not_found")
)

// Product is a catalog entry. Image is an opaque URL supplied by the
// caller; this service does not host images.
type Product struct {
	ID          string    `json:"id" gorm:"column:id;primaryKey"`
	Name        string    `json:"name" gorm:"column:name;not null"`
	Description string    `json:"description" gorm:"column:description"`
	Price       float64   `json:"price" gorm:"column:price;not null"`
	Image       string    `json:"image" gorm:"column:image"`
	Category    string    `json:"category" gorm:"column:category;index"`
	IsFeatured  bool      `json:"isFeatured" gorm:"column:is_featured;index"`
	CreatedAt   time.Time `json:"-" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"-" gorm:"column:updated_at"`
}

// TableName pins the products table name.
func (Product) TableName() string {
	return "products"
}

// FeaturedCache caches the featured-product listing. Implementations
// must treat failures as cache misses; the store falls back to the DB.
type FeaturedCache interface {
	Read(ctx context.Context) ([]Product, bool)
	Write(ctx context.Context, products []Product)
}

// NoopFeaturedCache disables caching; every read goes to the database.
type NoopFeaturedCache struct{}

// Read always misses.
func (NoopFeaturedCache) Read(ctx context.Context) ([]Product, bool) { return nil, false }

// Write discards the listing.
func (NoopFeaturedCache) Write(ctx context.Context, products []Product) {}

// Store persists products and maintains the featured cache.
type Store struct {
	db     *gorm.DB
	cache  FeaturedCache
	logger *zap.Logger
}

// NewStore migrates the products table and wraps the connection.
func NewStore(ctx context.Context, gormDB *gorm.DB, cache FeaturedCache, logger *zap.Logger) (*Store, error) {
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&Product{}); migrateErr != nil {
		return nil, fmt.Errorf("catalog.migrate: %w", migrateErr)
	}
	if cache == nil {
		cache = NoopFeaturedCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: gormDB, cache: cache, logger: logger}, nil
}

// List returns every product.
func (store *Store) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := store.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog.list: %w", err)
	}
	return products, nil
}

// Get returns a single product by id.
func (store *Store) Get(ctx context.Context, productID string) (Product, error) {
	var product Product
	err := store.db.WithContext(ctx).Where("id = ?", productID).Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Product{}, fmt.Errorf("catalog.get: %w", ErrProductNotFound)
		}
		return Product{}, fmt.Errorf("catalog.get: %w", err)
	}
	return product, nil
}

// ListByIDs returns the products matching the ids in a single query.
// Ids with no surviving product are simply absent from the result.
func (store *Store) ListByIDs(ctx context.Context, productIDs []string) ([]Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []Product
	if err := store.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog.list_by_ids: %w", err)
	}
	return products, nil
}

// Create inserts a new product.
func (store *Store) Create(ctx context.Context, product Product) (Product, error) {
	product.ID = uuid.NewString()
	if err := store.db.WithContext(ctx).Create(&product).Error; err != nil {
		return Product{}, fmt.Errorf("catalog.create: %w", err)
	}
	return product, nil
}

// Delete removes a product by id.
func (store *Store) Delete(ctx context.Context, productID string) error {
	result := store.db.WithContext(ctx).Where("id = ?", productID).Delete(&Product{})
	if result.Error != nil {
		return fmt.Errorf("catalog.delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("catalog.delete: %w", ErrProductNotFound)
	}
	return nil
}

// ListByCategory returns products in the given category.
func (store *Store) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	var products []Product
	if err := store.db.WithContext(ctx).Where("category = ?", category).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog.list_by_category: %w", err)
	}
	return products, nil
}

// ListFeatured returns featured products, reading through the cache.
func (store *Store) ListFeatured(ctx context.Context) ([]Product, error) {
	if cached, hit := store.cache.Read(ctx); hit {
		return cached, nil
	}
	var products []Product
	if err := store.db.WithContext(ctx).Where("is_featured = ?", true).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog.list_featured: %w", err)
	}
	store.cache.Write(ctx, products)
	return products, nil
}

// Recommendations returns a random sample of products.
func (store *Store) Recommendations(ctx context.Context, count int) ([]Product, error) {
	var products []Product
	if err := store.db.WithContext(ctx).Order("RANDOM()").Limit(count).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("catalog.recommendations: %w", err)
	}
	return products, nil
}

// ToggleFeatured flips the featured flag and rewrites the cache.
func (store *Store) ToggleFeatured(ctx context.Context, productID string) (Product, error) {
	product, getErr := store.Get(ctx, productID)
	if getErr != nil {
		return Product{}, getErr
	}
	product.IsFeatured = !product.IsFeatured
	if err := store.db.WithContext(ctx).Model(&Product{}).Where("id = ?", productID).Update("is_featured", product.IsFeatured).Error; err != nil {
		return Product{}, fmt.Errorf("catalog.toggle_featured: %w", err)
	}

	var featured []Product
	if err := store.db.WithContext(ctx).Where("is_featured = ?", true).Find(&featured).Error; err != nil {
		store.logger.Warn("featured cache refresh skipped",
			zap.String("code", "catalog.cache.refresh_error"),
			zap.Error(err))
		return product, nil
	}
	store.cache.Write(ctx, featured)
	return product, nil
}
