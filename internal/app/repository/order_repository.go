package repository

import (
	"context"

	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderStats struct {
	Total    int64                       `json:"total"`
	ByStatus map[model.OrderStatus]int64 `json:"by_status"`
	Revenue  int64                       `json:"revenue"` // completed orders only
	Unpaid   int64                       `json:"unpaid"`
}

type OrderRepository interface {
	// Create inserts the order and its lines using tx.
	Create(tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	// UpdateStatus changes order_status using tx, only while it still equals from.
	UpdateStatus(tx *gorm.DB, id string, from, to model.OrderStatus) (bool, error)
	// UpdatePaymentStatus changes payment_status using tx, only while it still equals from.
	UpdatePaymentStatus(tx *gorm.DB, id string, from, to model.PaymentStatus) (bool, error)
	Stats(ctx context.Context) (*OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_lines.position ASC")
	})
}

func (r *orderRepository) Create(tx *gorm.DB, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
		"method":   order.Method,
		"lines":    len(order.Items),
	})

	for i := range order.Items {
		order.Items[i].Position = i
	}
	if err := tx.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_id": order.ID,
			"total":    order.Total,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.OrderStatus,
	})
	return &order, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	logger.Debug("Finding orders in database", map[string]interface{}{
		"status": filter.Status,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	query := r.preloadOrder(ctx).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("order_status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders in database", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, err
	}

	logger.Debug("Orders found in database", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

func (r *orderRepository) UpdateStatus(tx *gorm.DB, id string, from, to model.OrderStatus) (bool, error) {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	result := tx.Model(&model.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Update("order_status", to)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) UpdatePaymentStatus(tx *gorm.DB, id string, from, to model.PaymentStatus) (bool, error) {
	logger.Debug("Updating order payment status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	result := tx.Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Update("payment_status", to)
	if result.Error != nil {
		logger.Error("Failed to update order payment status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) Stats(ctx context.Context) (*OrderStats, error) {
	logger.Debug("Getting order statistics in database", nil)

	stats := &OrderStats{ByStatus: map[model.OrderStatus]int64{}}
	base := r.db.WithContext(ctx).Model(&model.Order{})

	statusCounts := []struct {
		OrderStatus model.OrderStatus
		Count       int64
	}{}
	if err := base.Session(&gorm.Session{}).
		Select("order_status, COUNT(*) as count").
		Group("order_status").
		Scan(&statusCounts).Error; err != nil {
		logger.Error("Failed to count orders by status", err, nil)
		return nil, err
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.OrderStatus] = sc.Count
		stats.Total += sc.Count
	}

	var revenue struct {
		Revenue int64
	}
	if err := base.Session(&gorm.Session{}).
		Select("COALESCE(SUM(total), 0) as revenue").
		Where("order_status = ?", model.OrderStatusCompleted).
		Scan(&revenue).Error; err != nil {
		logger.Error("Failed to calculate revenue", err, nil)
		return nil, err
	}
	stats.Revenue = revenue.Revenue

	if err := base.Session(&gorm.Session{}).
		Where("payment_status = ? AND order_status <> ?", model.PaymentStatusUnpaid, model.OrderStatusCancelled).
		Count(&stats.Unpaid).Error; err != nil {
		logger.Error("Failed to count unpaid orders", err, nil)
		return nil, err
	}

	logger.Debug("Order statistics computed", map[string]interface{}{
		"total":   stats.Total,
		"revenue": stats.Revenue,
	})
	return stats, nil
}
