package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/store177/shop-backend/internal/app/catalog"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	apperrors "github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/storage"
	"github.com/store177/shop-backend/pkg/logger"
)

const catalogCacheKey = "catalog"

// CatalogCache holds the projected storefront. *redis.Cache implements it.
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// ImageStorage hands out direct-upload URLs for product photos.
type ImageStorage interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type CreateProductInput struct {
	Title       string                 `json:"title"`
	Brand       string                 `json:"brand"`
	Description string                 `json:"description"`
	Condition   model.ProductCondition `json:"condition"`
	Price       int64                  `json:"price"`
	OldPrice    *int64                 `json:"old_price"`
	Stock       int                    `json:"stock"`
	SKU         *string                `json:"sku"`
	IsActive    *bool                  `json:"is_active"`
}

type UpdateProductInput struct {
	Title       *string                 `json:"title"`
	Brand       *string                 `json:"brand"`
	Description *string                 `json:"description"`
	Condition   *model.ProductCondition `json:"condition"`
	BasePrice   *int64                  `json:"base_price"`
	IsActive    *bool                   `json:"is_active"`
}

// ProductOptions is the editable option schema of a product.
type ProductOptions struct {
	Groups   []model.OptionGroup `json:"groups"`
	Variants []model.Variant     `json:"variants"`
}

// GenerateResult is a regeneration preview; nothing is persisted.
type GenerateResult struct {
	Groups   []model.OptionGroup `json:"groups"`
	Variants []model.Variant     `json:"variants"`
	Kept     int                 `json:"kept"`
	Created  int                 `json:"created"`
	Dropped  []model.Variant     `json:"dropped"`
}

type ProductService interface {
	Catalog(ctx context.Context) ([]catalog.CatalogItem, error)
	WarmCatalog(ctx context.Context) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	FindVariant(ctx context.Context, productID string, selections model.Selections) (*model.Variant, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetOptions(ctx context.Context, id string) (*ProductOptions, error)
	ReplaceOptionGroups(ctx context.Context, id string, groups []model.OptionGroup) ([]model.OptionGroup, error)
	GenerateVariants(ctx context.Context, id string, groups []model.OptionGroup) (*GenerateResult, error)
	SaveOptions(ctx context.Context, id string, groups []model.OptionGroup, variants []model.Variant) (*ProductOptions, error)
	PresignImage(ctx context.Context, id, filename, contentType string) (*storage.PresignedURLResponse, error)
	AddImage(ctx context.Context, id, url, key string) (*model.ProductImage, error)
}

type productService struct {
	productRepo repository.ProductRepository
	cache       CatalogCache
	images      ImageStorage
}

// NewProductService wires the catalog. cache and images may be nil.
func NewProductService(productRepo repository.ProductRepository, cache CatalogCache, images ImageStorage) ProductService {
	return &productService{
		productRepo: productRepo,
		cache:       cache,
		images:      images,
	}
}

func (s *productService) Catalog(ctx context.Context) ([]catalog.CatalogItem, error) {
	if s.cache != nil {
		var cached []catalog.CatalogItem
		hit, err := s.cache.GetJSON(ctx, catalogCacheKey, &cached)
		if err != nil {
			logger.From(ctx).Warn("Catalog cache read failed, falling back to database", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if hit {
			return cached, nil
		}
	}

	items, err := s.productRepo.ListForCatalog(ctx)
	if err != nil {
		return nil, apperrors.FromStore(err, "list catalog", "product", "")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, catalogCacheKey, items); err != nil {
			logger.From(ctx).Warn("Catalog cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return items, nil
}

// WarmCatalog rebuilds the cached storefront from the database.
func (s *productService) WarmCatalog(ctx context.Context) error {
	items, err := s.productRepo.ListForCatalog(ctx)
	if err != nil {
		return apperrors.FromStore(err, "list catalog", "product", "")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.SetJSON(ctx, catalogCacheKey, items); err != nil {
		return err
	}

	logger.Debug("Catalog cache warmed", map[string]interface{}{
		"items": len(items),
	})
	return nil
}

func (s *productService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		logger.From(ctx).Warn("Failed to invalidate catalog cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *productService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "find product", "product", id)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "list products", "product", "")
	}
	return products, nil
}

// FindVariant resolves storefront selections to an orderable variant.
func (s *productService) FindVariant(ctx context.Context, productID string, selections model.Selections) (*model.Variant, error) {
	variant, err := s.productRepo.FindBySelections(ctx, productID, selections)
	if err != nil {
		return nil, apperrors.FromStore(err, "find variant", "variant", "")
	}
	return variant, nil
}

func (s *productService) CreateProduct(ctx context.Context, input CreateProductInput) (*model.Product, error) {
	log := logger.From(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Укажите название товара", "product", "")
	}
	condition := input.Condition
	if condition == "" {
		condition = model.ConditionNew
	}
	if !condition.Valid() {
		return nil, apperrors.ValidationOn(apperrors.ValidationInvalidInput, "Некорректное состояние товара", "product", "")
	}
	if input.Price < 0 || input.Stock < 0 || (input.OldPrice != nil && *input.OldPrice < 0) {
		return nil, apperrors.ValidationOn(apperrors.ValidationInvalidInput, "Цена и остаток не могут быть отрицательными", "product", "")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	product := &model.Product{
		ID:           uuid.NewString(),
		Title:        title,
		Brand:        strings.TrimSpace(input.Brand),
		Description:  strings.TrimSpace(input.Description),
		Condition:    condition,
		BasePrice:    input.Price,
		IsActive:     active,
		OptionGroups: []model.OptionGroup{},
	}
	variant := &model.Variant{
		ID:         uuid.NewString(),
		Selections: model.Selections{},
		Pricing:    model.Pricing{Mode: model.PricingFinal, Amount: input.Price},
		OldPrice:   input.OldPrice,
		Stock:      input.Stock,
		IsActive:   true,
		SKU:        trimSKU(input.SKU),
	}

	if err := s.productRepo.Create(ctx, product, variant); err != nil {
		return nil, apperrors.FromStore(err, "create product", "product", product.ID)
	}
	product.Variants = []model.Variant{*variant}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	})
	s.invalidateCatalog(ctx)
	return product, nil
}

func trimSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	v := strings.TrimSpace(*sku)
	if v == "" {
		return nil
	}
	return &v
}

func (s *productService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "find product", "product", id)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Укажите название товара", "product", id)
		}
		product.Title = title
	}
	if input.Brand != nil {
		product.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Condition != nil {
		if !input.Condition.Valid() {
			return nil, apperrors.ValidationOn(apperrors.ValidationInvalidInput, "Некорректное состояние товара", "product", id)
		}
		product.Condition = *input.Condition
	}
	if input.BasePrice != nil {
		if *input.BasePrice < 0 {
			return nil, apperrors.ValidationOn(apperrors.ValidationInvalidInput, "Цена не может быть отрицательной", "product", id)
		}
		product.BasePrice = *input.BasePrice
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.productRepo.UpdateDetails(ctx, product); err != nil {
		return nil, apperrors.FromStore(err, "update product", "product", id)
	}

	logger.From(ctx).Info("Product updated", map[string]interface{}{
		"product_id": id,
		"is_active":  product.IsActive,
	})
	s.invalidateCatalog(ctx)
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return apperrors.FromStore(err, "delete product", "product", id)
	}

	logger.From(ctx).Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	s.invalidateCatalog(ctx)
	return nil
}

func (s *productService) GetOptions(ctx context.Context, id string) (*ProductOptions, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "find product", "product", id)
	}
	return optionsOf(product), nil
}

func optionsOf(p *model.Product) *ProductOptions {
	opts := &ProductOptions{Groups: p.OptionGroups, Variants: p.Variants}
	if opts.Groups == nil {
		opts.Groups = []model.OptionGroup{}
	}
	if opts.Variants == nil {
		opts.Variants = []model.Variant{}
	}
	return opts
}

// ReplaceOptionGroups validates and stores the groups only. Variants that
// reference removed groups or values stay until the next full save.
func (s *productService) ReplaceOptionGroups(ctx context.Context, id string, groups []model.OptionGroup) ([]model.OptionGroup, error) {
	canonical, err := catalog.ValidateGroups(groups)
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.UpdateGroups(ctx, id, canonical); err != nil {
		return nil, apperrors.FromStore(err, "update option groups", "product", id)
	}

	logger.From(ctx).Info("Option groups replaced", map[string]interface{}{
		"product_id": id,
		"groups":     len(canonical),
	})
	s.invalidateCatalog(ctx)
	return canonical, nil
}

// GenerateVariants previews the reconciled variant list. When groups is nil
// the stored groups are used.
func (s *productService) GenerateVariants(ctx context.Context, id string, groups []model.OptionGroup) (*GenerateResult, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "find product", "product", id)
	}

	if groups == nil {
		groups = product.OptionGroups
	} else if groups, err = catalog.ValidateGroups(groups); err != nil {
		return nil, err
	}

	variants, report, err := catalog.GenerateVariants(product.ID, groups, product.Variants, uuid.NewString)
	if err != nil {
		return nil, err
	}

	dropped := report.Dropped
	if dropped == nil {
		dropped = []model.Variant{}
	}
	logger.From(ctx).Info("Variants generated", map[string]interface{}{
		"product_id": id,
		"kept":       report.Kept,
		"created":    report.Created,
		"dropped":    len(dropped),
	})

	if groups == nil {
		groups = []model.OptionGroup{}
	}
	return &GenerateResult{
		Groups:   groups,
		Variants: variants,
		Kept:     report.Kept,
		Created:  report.Created,
		Dropped:  dropped,
	}, nil
}

// SaveOptions replaces groups and variants atomically after full validation.
// Variants without an id get a fresh one.
func (s *productService) SaveOptions(ctx context.Context, id string, groups []model.OptionGroup, variants []model.Variant) (*ProductOptions, error) {
	canonical, err := catalog.ValidateGroups(groups)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, apperrors.ValidationOn(apperrors.ValidationInvalidVariant, "У товара должен быть хотя бы один вариант", "product", id)
	}

	for i := range variants {
		if strings.TrimSpace(variants[i].ID) == "" {
			variants[i].ID = uuid.NewString()
		}
	}
	if err := catalog.ValidateVariants(canonical, variants); err != nil {
		return nil, err
	}

	if err := s.productRepo.SaveOptions(ctx, id, canonical, variants); err != nil {
		return nil, apperrors.FromStore(err, "save options", "product", id)
	}

	logger.From(ctx).Info("Product options saved", map[string]interface{}{
		"product_id": id,
		"groups":     len(canonical),
		"variants":   len(variants),
	})
	s.invalidateCatalog(ctx)
	return s.GetOptions(ctx, id)
}

func (s *productService) PresignImage(ctx context.Context, id, filename, contentType string) (*storage.PresignedURLResponse, error) {
	if s.images == nil {
		return nil, apperrors.Validation(apperrors.UploadFailed, "Загрузка изображений не настроена")
	}
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return nil, apperrors.FromStore(err, "find product", "product", id)
	}

	resp, err := s.images.PresignUpload(ctx, "products/"+id, filename, contentType)
	if err != nil {
		return nil, apperrors.Validation(apperrors.UploadInvalidFileType, "Допустимы только изображения JPEG, PNG или WebP")
	}
	return resp, nil
}

func (s *productService) AddImage(ctx context.Context, id, url, key string) (*model.ProductImage, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Укажите адрес изображения", "product", id)
	}

	image := &model.ProductImage{
		ID:        uuid.NewString(),
		ProductID: id,
		URL:       url,
		Key:       strings.TrimSpace(key),
	}
	if err := s.productRepo.AddImage(ctx, image); err != nil {
		return nil, apperrors.FromStore(err, "add image", "product", id)
	}

	s.invalidateCatalog(ctx)
	return image, nil
}
