package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/db"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductControllerTest(t *testing.T) (*gin.Engine, service.ProductService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productService := service.NewProductService(repository.NewProductRepository(testDB), nil, nil)
	ctrl := NewProductController(productService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/products", ctrl.GetCatalog)
	router.GET("/products/:id", ctrl.GetProduct)
	router.POST("/products/:id/variant", ctrl.FindVariant)
	router.GET("/admin/products", ctrl.ListProducts)
	router.POST("/admin/products", ctrl.CreateProduct)
	router.PATCH("/admin/products/:id", ctrl.UpdateProduct)
	router.DELETE("/admin/products/:id", ctrl.DeleteProduct)
	router.GET("/admin/products/:id/options", ctrl.GetOptions)
	router.PUT("/admin/products/:id/options", ctrl.SaveOptions)
	router.PUT("/admin/products/:id/groups", ctrl.ReplaceGroups)
	router.POST("/admin/products/:id/generate", ctrl.GenerateVariants)
	router.POST("/admin/products/:id/images/presign", ctrl.PresignImage)
	router.POST("/admin/products/:id/images", ctrl.AddImage)

	return router, productService, testDB
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	return doJSONWithHeader(router, method, path, body, "", "")
}

func doJSONWithHeader(router *gin.Engine, method, path string, body interface{}, header, value string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp errors.ErrorResponse
	decode(t, w, &resp)
	return resp.Error
}

func TestProductController_CreateAndCatalog(t *testing.T) {
	router, _, _ := setupProductControllerTest(t)

	w := doJSON(router, http.MethodPost, "/admin/products", map[string]interface{}{
		"title": "iPhone 15", "brand": "Apple", "price": 79990, "stock": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Product model.Product `json:"product"`
	}
	decode(t, w, &created)
	assert.NotEmpty(t, created.Product.ID)
	require.Len(t, created.Product.Variants, 1)

	w = doJSON(router, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var catalog struct {
		Products []map[string]interface{} `json:"products"`
		Count    int                      `json:"count"`
	}
	decode(t, w, &catalog)
	assert.Equal(t, 1, catalog.Count)
	assert.Equal(t, "iPhone 15", catalog.Products[0]["title"])
	assert.Equal(t, float64(79990), catalog.Products[0]["price"])
}

func TestProductController_CreateProduct_Invalid(t *testing.T) {
	router, _, _ := setupProductControllerTest(t)

	w := doJSON(router, http.MethodPost, "/admin/products", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ValidationInvalidInput, errorCode(t, w))

	w = doJSON(router, http.MethodPost, "/admin/products", map[string]interface{}{"title": "", "price": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ValidationRequired, errorCode(t, w))
}

func TestProductController_GetProduct(t *testing.T) {
	router, svc, _ := setupProductControllerTest(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, service.CreateProductInput{Title: "Pixel 8", Price: 59990})
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/products/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ProductNotFound, errorCode(t, w))

	inactive := false
	_, err = svc.UpdateProduct(ctx, p.ID, service.UpdateProductInput{IsActive: &inactive})
	require.NoError(t, err)

	w = doJSON(router, http.MethodGet, "/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_OptionsFlow(t *testing.T) {
	router, svc, _ := setupProductControllerTest(t)

	p, err := svc.CreateProduct(context.Background(), service.CreateProductInput{Title: "iPhone 15", Price: 79990, Stock: 1})
	require.NoError(t, err)
	base := "/admin/products/" + p.ID

	groups := []map[string]interface{}{{
		"id": "mem", "name": "Память", "input_type": "select", "required": true,
		"values": []string{"128GB", "256GB"},
	}}

	w := doJSON(router, http.MethodPut, base+"/groups", map[string]interface{}{"groups": groups})
	require.Equal(t, http.StatusOK, w.Code)

	// empty body: generate from the stored groups
	w = doJSON(router, http.MethodPost, base+"/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var preview service.GenerateResult
	decode(t, w, &preview)
	require.Len(t, preview.Variants, 2)
	assert.Equal(t, 2, preview.Created)
	assert.Len(t, preview.Dropped, 1, "the default variant has no memory value")

	for i := range preview.Variants {
		preview.Variants[i].Pricing = model.Pricing{Mode: model.PricingDelta, Amount: int64(i) * 10000}
		preview.Variants[i].Stock = 4
	}
	w = doJSON(router, http.MethodPut, base+"/options", map[string]interface{}{
		"groups":   preview.Groups,
		"variants": preview.Variants,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, base+"/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var opts service.ProductOptions
	decode(t, w, &opts)
	assert.Len(t, opts.Variants, 2)

	w = doJSON(router, http.MethodPost, "/products/"+p.ID+"/variant", map[string]interface{}{
		"selections": map[string]string{"mem": "256GB"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Price   int64  `json:"price"`
		Options string `json:"options"`
	}
	decode(t, w, &found)
	assert.Equal(t, int64(89990), found.Price)
	assert.Equal(t, "Память: 256GB", found.Options)

	w = doJSON(router, http.MethodPost, "/products/"+p.ID+"/variant", map[string]interface{}{
		"selections": map[string]string{"mem": "1TB"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.VariantNotFound, errorCode(t, w))
}

func TestProductController_GenerateUnsupported(t *testing.T) {
	router, svc, _ := setupProductControllerTest(t)

	p, err := svc.CreateProduct(context.Background(), service.CreateProductInput{Title: "Case", Price: 990})
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/admin/products/"+p.ID+"/generate", map[string]interface{}{
		"groups": []map[string]interface{}{{"id": "engraving", "name": "Гравировка", "input_type": "text"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, errors.GenerationUnsupported, errorCode(t, w))
}

func TestProductController_UpdateAndDelete(t *testing.T) {
	router, svc, _ := setupProductControllerTest(t)

	p, err := svc.CreateProduct(context.Background(), service.CreateProductInput{Title: "Pixel 8", Price: 59990})
	require.NoError(t, err)

	w := doJSON(router, http.MethodPatch, "/admin/products/"+p.ID, map[string]interface{}{"title": "Pixel 8a"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/admin/products?search=8a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = doJSON(router, http.MethodDelete, "/admin/products/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodDelete, "/admin/products/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_Images(t *testing.T) {
	router, svc, _ := setupProductControllerTest(t)

	p, err := svc.CreateProduct(context.Background(), service.CreateProductInput{Title: "Pixel 8", Price: 59990})
	require.NoError(t, err)

	// storage is not configured in this setup
	w := doJSON(router, http.MethodPost, "/admin/products/"+p.ID+"/images/presign", map[string]string{
		"filename": "a.jpg", "content_type": "image/jpeg",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.UploadFailed, errorCode(t, w))

	w = doJSON(router, http.MethodPost, "/admin/products/"+p.ID+"/images", map[string]string{
		"url": "https://cdn.store177.ru/products/a.jpg",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/products", nil)
	var catalog struct {
		Products []map[string]interface{} `json:"products"`
	}
	decode(t, w, &catalog)
	require.Len(t, catalog.Products, 1)
	assert.Equal(t, "https://cdn.store177.ru/products/a.jpg", catalog.Products[0]["image_url"])
}
