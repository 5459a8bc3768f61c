package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/middleware"
)

type OrderController struct {
	orderService     service.OrderService
	placementTimeout time.Duration
}

func NewOrderController(orderService service.OrderService, placementTimeout time.Duration) *OrderController {
	return &OrderController{
		orderService:     orderService,
		placementTimeout: placementTimeout,
	}
}

// PlaceOrder creates an order from the submitted cart
// POST /api/v1/orders
func (ctrl *OrderController) PlaceOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order request", map[string]interface{}{
			"error": err.Error(),
		})
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные заказа")
		return
	}

	if user, ok := middleware.GetTelegramUser(c); ok {
		id := user.ID
		req.TelegramUserID = &id
		if strings.TrimSpace(req.CustomerName) == "" {
			req.CustomerName = user.DisplayName()
		}
	}

	ctx := c.Request.Context()
	if ctrl.placementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ctrl.placementTimeout)
		defer cancel()
	}

	order, err := ctrl.orderService.PlaceOrder(ctx, req)
	if err != nil {
		errors.Respond(c, err, "order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// ListOrders returns orders newest first
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := ctrl.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		errors.Respond(c, err, "order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one order with its lines
// GET /api/v1/admin/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctrl.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		errors.Respond(c, err, "order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UpdateStatus changes the order and/or payment status
// PATCH /api/v1/admin/orders/:id
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req service.StatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	callerID, _ := middleware.GetCallerID(c)
	log.Info("Admin updating order status", map[string]interface{}{
		"order_id":       id,
		"caller_id":      callerID,
		"order_status":   req.OrderStatus,
		"payment_status": req.PaymentStatus,
	})

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), id, req)
	if err != nil {
		errors.Respond(c, err, "order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetStats returns order counters for the dashboard
// GET /api/v1/admin/orders/stats
func (ctrl *OrderController) GetStats(c *gin.Context) {
	stats, err := ctrl.orderService.Stats(c.Request.Context())
	if err != nil {
		errors.Respond(c, err, "order")
		return
	}
	c.JSON(http.StatusOK, stats)
}
