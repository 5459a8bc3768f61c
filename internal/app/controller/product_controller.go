package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/app/catalog"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/middleware"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type FindVariantRequest struct {
	Selections model.Selections `json:"selections"`
}

type OptionGroupsRequest struct {
	Groups []model.OptionGroup `json:"groups"`
}

type SaveOptionsRequest struct {
	Groups   []model.OptionGroup `json:"groups"`
	Variants []model.Variant     `json:"variants"`
}

type PresignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

type AddImageRequest struct {
	URL string `json:"url" binding:"required"`
	Key string `json:"key"`
}

// GetCatalog returns the storefront view
// GET /api/v1/products
func (ctrl *ProductController) GetCatalog(c *gin.Context) {
	items, err := ctrl.productService.Catalog(c.Request.Context())
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to build catalog", err, nil)
		errors.Respond(c, err, "catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": items,
		"count":    len(items),
	})
}

// GetProduct returns an active product with its orderable variants
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	id := c.Param("id")

	product, err := ctrl.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	if !product.IsActive {
		errors.NotFound(c, errors.ProductNotFound, "Товар не найден")
		return
	}

	active := make([]model.Variant, 0, len(product.Variants))
	for _, v := range product.Variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	product.Variants = active

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// FindVariant resolves storefront selections to a variant and its price
// POST /api/v1/products/:id/variant
func (ctrl *ProductController) FindVariant(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req FindVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid variant lookup request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	ctx := c.Request.Context()
	product, err := ctrl.productService.GetProduct(ctx, id)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	variant, err := ctrl.productService.FindVariant(ctx, id, req.Selections)
	if err != nil {
		errors.Respond(c, err, "variant")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant": variant,
		"price":   catalog.ResolvePrice(product, variant),
		"options": catalog.Describe(product.OptionGroups, variant.Selections),
	})
}

// ListProducts returns every product for the admin panel
// GET /api/v1/admin/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Search:          strings.TrimSpace(c.Query("search")),
		IncludeVariants: c.Query("include_variants") == "true",
		ActiveOnly:      c.Query("active") == "true",
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	products, err := ctrl.productService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// CreateProduct creates a product with one default variant
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.CreateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"product": product,
	})
}

// UpdateProduct patches product details
// PATCH /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	id := c.Param("id")

	var req service.UpdateProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// DeleteProduct removes a product; placed orders keep their snapshots
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	if err := ctrl.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		errors.Respond(c, err, "product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Товар удалён",
	})
}

// GetOptions returns the option schema and all variants
// GET /api/v1/admin/products/:id/options
func (ctrl *ProductController) GetOptions(c *gin.Context) {
	opts, err := ctrl.productService.GetOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, opts)
}

// SaveOptions replaces groups and variants in one step
// PUT /api/v1/admin/products/:id/options
func (ctrl *ProductController) SaveOptions(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req SaveOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid options payload", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	opts, err := ctrl.productService.SaveOptions(c.Request.Context(), id, req.Groups, req.Variants)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, opts)
}

// ReplaceGroups stores a new option schema without touching variants
// PUT /api/v1/admin/products/:id/groups
func (ctrl *ProductController) ReplaceGroups(c *gin.Context) {
	var req OptionGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	groups, err := ctrl.productService.ReplaceOptionGroups(c.Request.Context(), c.Param("id"), req.Groups)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
	})
}

// GenerateVariants previews the variant set for a schema. An empty body uses
// the stored groups.
// POST /api/v1/admin/products/:id/generate
func (ctrl *ProductController) GenerateVariants(c *gin.Context) {
	var req OptionGroupsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
			return
		}
	}

	result, err := ctrl.productService.GenerateVariants(c.Request.Context(), c.Param("id"), req.Groups)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	c.JSON(http.StatusOK, result)
}

// PresignImage returns a direct upload URL for a product photo
// POST /api/v1/admin/products/:id/images/presign
func (ctrl *ProductController) PresignImage(c *gin.Context) {
	var req PresignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "Укажите имя файла и тип")
		return
	}

	resp, err := ctrl.productService.PresignImage(c.Request.Context(), c.Param("id"), req.Filename, req.ContentType)
	if err != nil {
		errors.Respond(c, err, "upload")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddImage attaches an uploaded photo to the product
// POST /api/v1/admin/products/:id/images
func (ctrl *ProductController) AddImage(c *gin.Context) {
	var req AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationRequired, "Укажите адрес изображения")
		return
	}

	image, err := ctrl.productService.AddImage(c.Request.Context(), c.Param("id"), req.URL, req.Key)
	if err != nil {
		errors.Respond(c, err, "product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"image": image,
	})
}
