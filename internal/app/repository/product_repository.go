package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/store177/shop-backend/internal/app/catalog"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/pkg/logger"
	"gorm.io/gorm"
)

type ProductFilter struct {
	ActiveOnly      bool
	IncludeVariants bool
	Search          string
	Limit           int
	Offset          int
}

type ProductRepository interface {
	// Create stores a product together with its first variant.
	Create(ctx context.Context, product *model.Product, defaultVariant *model.Variant) error
	FindAll(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (*model.Product, error)
	UpdateDetails(ctx context.Context, product *model.Product) error
	UpdateGroups(ctx context.Context, id string, groups []model.OptionGroup) error
	// SaveOptions replaces groups and variants in one transaction.
	SaveOptions(ctx context.Context, id string, groups []model.OptionGroup, variants []model.Variant) error
	Delete(ctx context.Context, id string) error
	AddImage(ctx context.Context, image *model.ProductImage) error
	ListForCatalog(ctx context.Context) ([]catalog.CatalogItem, error)
	FindBySelections(ctx context.Context, productID string, selections model.Selections) (*model.Variant, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product, defaultVariant *model.Variant) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
		"brand":      product.Brand,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		if defaultVariant == nil {
			return nil
		}
		defaultVariant.ProductID = product.ID
		defaultVariant.Signature = catalog.Signature(product.OptionGroups, defaultVariant.Selections)
		return tx.Create(defaultVariant).Error
	})
	if err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"product_id": product.ID,
			"title":      product.Title,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) baseQuery(ctx context.Context, includeVariants bool) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.Product{}).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_images.position ASC")
		})
	if includeVariants {
		query = query.Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("product_variants.position ASC, product_variants.created_at ASC")
		})
	}
	return query
}

func (r *productRepository) FindAll(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	logger.Debug("Finding products", map[string]interface{}{
		"active_only": filter.ActiveOnly,
		"search":      filter.Search,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	query := r.baseQuery(ctx, filter.IncludeVariants)
	if filter.ActiveOnly {
		query = query.Where("products.is_active = ?", true)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("products.title LIKE ? OR products.brand LIKE ?", like, like)
	}
	query = query.Order("products.created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, err
	}

	logger.Debug("Products found", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	logger.Debug("Finding product by ID in database", map[string]interface{}{
		"product_id": id,
	})

	var product model.Product
	if err := r.baseQuery(ctx, true).Where("products.id = ?", id).First(&product).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Debug("Product found by ID in database", map[string]interface{}{
		"product_id": product.ID,
		"variants":   len(product.Variants),
	})
	return &product, nil
}

func (r *productRepository) UpdateDetails(ctx context.Context, product *model.Product) error {
	logger.Debug("Updating product details in database", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
		"is_active":  product.IsActive,
	})

	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"title":       product.Title,
			"brand":       product.Brand,
			"description": product.Description,
			"condition":   product.Condition,
			"base_price":  product.BasePrice,
			"is_active":   product.IsActive,
		})
	if result.Error != nil {
		logger.Error("Failed to update product details in database", result.Error, map[string]interface{}{
			"product_id": product.ID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.Debug("Product details updated in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (r *productRepository) UpdateGroups(ctx context.Context, id string, groups []model.OptionGroup) error {
	logger.Debug("Updating product option groups in database", map[string]interface{}{
		"product_id": id,
		"groups":     len(groups),
	})

	result := r.db.WithContext(ctx).Model(&model.Product{ID: id}).
		Select("option_groups").
		Updates(&model.Product{OptionGroups: groups})
	if result.Error != nil {
		logger.Error("Failed to update product option groups in database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) SaveOptions(ctx context.Context, id string, groups []model.OptionGroup, variants []model.Variant) error {
	logger.Debug("Replacing product options in database", map[string]interface{}{
		"product_id": id,
		"groups":     len(groups),
		"variants":   len(variants),
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Product{ID: id}).
			Select("option_groups").
			Updates(&model.Product{OptionGroups: groups})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("product_id = ?", id).Delete(&model.Variant{}).Error; err != nil {
			return err
		}
		if len(variants) == 0 {
			return nil
		}

		for i := range variants {
			variants[i].ProductID = id
			variants[i].Position = i
			variants[i].Signature = catalog.Signature(groups, variants[i].Selections)
		}
		return tx.Create(&variants).Error
	})
	if err != nil {
		logger.Error("Failed to replace product options in database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product options replaced in database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&model.Variant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Debug("Product deleted from database", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (r *productRepository) AddImage(ctx context.Context, image *model.ProductImage) error {
	logger.Debug("Adding product image in database", map[string]interface{}{
		"product_id": image.ProductID,
		"key":        image.Key,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Product{}).Where("id = ?", image.ProductID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		var maxPos sql.NullInt64
		if err := tx.Model(&model.ProductImage{}).
			Where("product_id = ?", image.ProductID).
			Select("MAX(position)").Row().Scan(&maxPos); err != nil {
			return err
		}
		image.Position = 0
		if maxPos.Valid {
			image.Position = int(maxPos.Int64) + 1
		}
		return tx.Create(image).Error
	})
	if err != nil {
		logger.Error("Failed to add product image in database", err, map[string]interface{}{
			"product_id": image.ProductID,
		})
		return err
	}
	return nil
}

// ListForCatalog projects every active product, newest first.
func (r *productRepository) ListForCatalog(ctx context.Context) ([]catalog.CatalogItem, error) {
	products, err := r.FindAll(ctx, ProductFilter{ActiveOnly: true, IncludeVariants: true})
	if err != nil {
		return nil, err
	}

	items := make([]catalog.CatalogItem, 0, len(products))
	for i := range products {
		items = append(items, catalog.Project(&products[i], products[i].Variants))
	}
	return items, nil
}

// FindBySelections returns the active variant of an active product matching
// selections. gorm.ErrRecordNotFound is returned when nothing matches.
func (r *productRepository) FindBySelections(ctx context.Context, productID string, selections model.Selections) (*model.Variant, error) {
	product, err := r.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, gorm.ErrRecordNotFound
	}

	variant, ok := catalog.MatchSelections(product.OptionGroups, product.Variants, selections)
	if !ok {
		logger.Debug("No variant matches selections", map[string]interface{}{
			"product_id": productID,
		})
		return nil, gorm.ErrRecordNotFound
	}
	return &variant, nil
}
