package controller

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/auth"
	"github.com/store177/shop-backend/internal/db"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

type orderTestEnv struct {
	router   *gin.Engine
	products service.ProductService
	orders   service.OrderService
}

func setupOrderControllerTest(t *testing.T) *orderTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	productService := service.NewProductService(productRepo, nil, nil)
	orderService := service.NewOrderService(testDB, repository.NewOrderRepository(testDB), productRepo,
		repository.NewVariantRepository(testDB), nil, service.OrderNotifications{StoreName: "Store 177"})
	ctrl := NewOrderController(orderService, 5*time.Second)

	never := func(int64) bool { return false }
	authMiddleware := middleware.NewAuthMiddleware(
		auth.NewTelegramGate(testBotToken, time.Hour, never),
		auth.NewSessionGate("secret", time.Hour, never),
	)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/orders", authMiddleware.OptionalCustomer(), ctrl.PlaceOrder)
	router.GET("/admin/orders", ctrl.ListOrders)
	router.GET("/admin/orders/stats", ctrl.GetStats)
	router.GET("/admin/orders/:id", ctrl.GetOrder)
	router.PATCH("/admin/orders/:id", ctrl.UpdateStatus)

	return &orderTestEnv{router: router, products: productService, orders: orderService}
}

func (env *orderTestEnv) product(t *testing.T, stock int) *model.Product {
	p, err := env.products.CreateProduct(context.Background(), service.CreateProductInput{Title: "AirPods Pro", Price: 24990, Stock: stock})
	require.NoError(t, err)
	return p
}

func orderBody(productID string, qty int) map[string]interface{} {
	return map[string]interface{}{
		"customer_name": "Иван",
		"phone":         "+79990001122",
		"method":        "pickup",
		"items":         []map[string]interface{}{{"product_id": productID, "qty": qty}},
	}
}

func TestOrderController_PlaceOrder(t *testing.T) {
	env := setupOrderControllerTest(t)
	p := env.product(t, 3)

	w := doJSON(env.router, http.MethodPost, "/orders", orderBody(p.ID, 2))
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Order model.Order `json:"order"`
	}
	decode(t, w, &resp)
	assert.Equal(t, int64(49980), resp.Order.Total)
	assert.Equal(t, model.OrderStatusCreated, resp.Order.OrderStatus)
	assert.Nil(t, resp.Order.TelegramUserID)
	require.Len(t, resp.Order.Items, 1)
	assert.Equal(t, "AirPods Pro", resp.Order.Items[0].TitleSnapshot)
}

func TestOrderController_PlaceOrder_TelegramCustomer(t *testing.T) {
	env := setupOrderControllerTest(t)
	p := env.product(t, 3)

	initData := auth.SignInitData(testBotToken, url.Values{
		"auth_date": {strconv.FormatInt(time.Now().Unix(), 10)},
		"user":      {`{"id":555,"first_name":"Анна","last_name":"Петрова"}`},
	})
	body := orderBody(p.ID, 1)
	body["customer_name"] = ""

	req := doJSONWithHeader(env.router, http.MethodPost, "/orders", body, middleware.InitDataHeader, initData)
	require.Equal(t, http.StatusCreated, req.Code)

	var resp struct {
		Order model.Order `json:"order"`
	}
	decode(t, req, &resp)
	require.NotNil(t, resp.Order.TelegramUserID)
	assert.Equal(t, int64(555), *resp.Order.TelegramUserID)
	assert.Equal(t, "Анна Петрова", resp.Order.CustomerName)
}

func TestOrderController_PlaceOrder_Errors(t *testing.T) {
	env := setupOrderControllerTest(t)
	p := env.product(t, 1)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"malformed", `{"items":`, http.StatusBadRequest, errors.ValidationInvalidInput},
		{"courier without address", func() map[string]interface{} {
			b := orderBody(p.ID, 1)
			b["method"] = "courier"
			return b
		}(), http.StatusBadRequest, errors.ValidationRequired},
		{"unknown product", orderBody("missing", 1), http.StatusNotFound, errors.ProductNotFound},
		{"insufficient stock", orderBody(p.ID, 2), http.StatusConflict, errors.OrderInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(env.router, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestOrderController_AdminFlow(t *testing.T) {
	env := setupOrderControllerTest(t)
	p := env.product(t, 5)

	w := doJSON(env.router, http.MethodPost, "/orders", orderBody(p.ID, 1))
	require.Equal(t, http.StatusCreated, w.Code)
	var placed struct {
		Order model.Order `json:"order"`
	}
	decode(t, w, &placed)
	id := placed.Order.ID

	w = doJSON(env.router, http.MethodGet, "/admin/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Orders []model.Order `json:"orders"`
		Count  int           `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = doJSON(env.router, http.MethodPatch, "/admin/orders/"+id, map[string]string{"order_status": "completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ValidationTransition, errorCode(t, w))

	w = doJSON(env.router, http.MethodPatch, "/admin/orders/"+id, map[string]string{
		"order_status": "confirmed", "payment_status": "paid_cash",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(env.router, http.MethodGet, "/admin/orders/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Order model.Order `json:"order"`
	}
	decode(t, w, &got)
	assert.Equal(t, model.OrderStatusConfirmed, got.Order.OrderStatus)
	assert.Equal(t, model.PaymentStatusPaidCash, got.Order.PaymentStatus)

	w = doJSON(env.router, http.MethodGet, "/admin/orders?status=confirmed", nil)
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = doJSON(env.router, http.MethodGet, "/admin/orders/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats repository.OrderStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(0), stats.Unpaid)

	w = doJSON(env.router, http.MethodGet, "/admin/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.OrderNotFound, errorCode(t, w))
}
