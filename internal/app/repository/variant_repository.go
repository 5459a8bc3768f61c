package repository

import (
	"context"

	"github.com/store177/shop-backend/internal/app/catalog"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/pkg/logger"
	"gorm.io/gorm"
)

// LowStockItem is an active variant of an active product at or below the threshold.
type LowStockItem struct {
	ProductID string
	VariantID string
	Title     string
	Options   string
	Stock     int
}

type VariantRepository interface {
	FindByID(ctx context.Context, id string) (*model.Variant, error)
	FindByProductID(ctx context.Context, productID string) ([]model.Variant, error)
	// GetStock reads the current stock inside tx.
	GetStock(tx *gorm.DB, id string) (int, error)
	// DecrementStock subtracts a positive qty only if stock still equals expected.
	// It reports false when another writer got there first.
	DecrementStock(tx *gorm.DB, id string, expected, qty int) (bool, error)
	FindLowStock(ctx context.Context, threshold int) ([]LowStockItem, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) FindByID(ctx context.Context, id string) (*model.Variant, error) {
	logger.Debug("Finding variant by ID in database", map[string]interface{}{
		"variant_id": id,
	})

	var variant model.Variant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		logger.Error("Failed to find variant by ID in database", err, map[string]interface{}{
			"variant_id": id,
		})
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) FindByProductID(ctx context.Context, productID string) ([]model.Variant, error) {
	var variants []model.Variant
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC, created_at ASC").
		Find(&variants).Error; err != nil {
		logger.Error("Failed to find variants by product ID in database", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return variants, nil
}

func (r *variantRepository) GetStock(tx *gorm.DB, id string) (int, error) {
	var variant model.Variant
	if err := tx.Select("id", "stock").Where("id = ?", id).First(&variant).Error; err != nil {
		logger.Error("Failed to read variant stock", err, map[string]interface{}{
			"variant_id": id,
		})
		return 0, err
	}
	return variant.Stock, nil
}

func (r *variantRepository) DecrementStock(tx *gorm.DB, id string, expected, qty int) (bool, error) {
	logger.Debug("Decrementing variant stock", map[string]interface{}{
		"variant_id": id,
		"expected":   expected,
		"qty":        qty,
	})

	if qty <= 0 {
		logger.Warn("Refusing non-positive stock decrement", map[string]interface{}{
			"variant_id": id,
			"qty":        qty,
		})
		return false, nil
	}

	result := tx.Model(&model.Variant{}).
		Where("id = ? AND stock = ? AND stock >= ?", id, expected, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		logger.Error("Failed to decrement variant stock", result.Error, map[string]interface{}{
			"variant_id": id,
			"qty":        qty,
		})
		return false, result.Error
	}

	if result.RowsAffected == 0 {
		logger.Warn("Variant stock changed concurrently", map[string]interface{}{
			"variant_id": id,
			"expected":   expected,
		})
		return false, nil
	}
	return true, nil
}

func (r *variantRepository) FindLowStock(ctx context.Context, threshold int) ([]LowStockItem, error) {
	logger.Debug("Finding low stock variants", map[string]interface{}{
		"threshold": threshold,
	})

	var variants []model.Variant
	if err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.is_active = ? AND product_variants.is_active = ? AND product_variants.stock <= ?", true, true, threshold).
		Order("product_variants.stock ASC, product_variants.product_id, product_variants.position").
		Find(&variants).Error; err != nil {
		logger.Error("Failed to find low stock variants", err, map[string]interface{}{
			"threshold": threshold,
		})
		return nil, err
	}
	if len(variants) == 0 {
		return []LowStockItem{}, nil
	}

	productIDs := make([]string, 0, len(variants))
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if !seen[v.ProductID] {
			seen[v.ProductID] = true
			productIDs = append(productIDs, v.ProductID)
		}
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		logger.Error("Failed to load products for low stock variants", err, nil)
		return nil, err
	}
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	items := make([]LowStockItem, 0, len(variants))
	for _, v := range variants {
		p, ok := byID[v.ProductID]
		if !ok {
			continue
		}
		items = append(items, LowStockItem{
			ProductID: p.ID,
			VariantID: v.ID,
			Title:     p.Title,
			Options:   catalog.Describe(p.OptionGroups, v.Selections),
			Stock:     v.Stock,
		})
	}

	logger.Debug("Low stock variants found", map[string]interface{}{
		"count": len(items),
	})
	return items, nil
}
