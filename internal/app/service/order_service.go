package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/store177/shop-backend/internal/app/catalog"
	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	apperrors "github.com/store177/shop-backend/internal/errors"
	"github.com/store177/shop-backend/internal/notify"
	"github.com/store177/shop-backend/pkg/logger"
	"gorm.io/gorm"
)

const notifyTimeout = 10 * time.Second

type OrderItemInput struct {
	ProductID  string           `json:"product_id"`
	VariantID  string           `json:"variant_id,omitempty"`
	Selections model.Selections `json:"selections,omitempty"`
	Qty        int              `json:"qty"`
}

type PlaceOrderInput struct {
	TelegramUserID *int64               `json:"-"`
	CustomerName   string               `json:"customer_name"`
	Phone          string               `json:"phone"`
	Method         model.DeliveryMethod `json:"method"`
	Address        string               `json:"address"`
	Comment        string               `json:"comment"`
	Items          []OrderItemInput     `json:"items"`
}

// StatusUpdate changes either status; empty fields are left alone.
type StatusUpdate struct {
	OrderStatus   model.OrderStatus   `json:"order_status"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	Stats(ctx context.Context) (*repository.OrderStats, error)
}

// OrderNotifications configures who hears about orders.
type OrderNotifications struct {
	Notifier  notify.Notifier
	AdminIDs  []int64
	StoreName string
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	variantRepo repository.VariantRepository
	cache       CatalogCache
	notes       OrderNotifications
	now         func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	cache CatalogCache,
	notes OrderNotifications,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		variantRepo: variantRepo,
		cache:       cache,
		notes:       notes,
		now:         time.Now,
	}
}

// reservation is the total quantity requested from one variant.
type reservation struct {
	productID string
	variantID string
	expected  int // stock seen while resolving
	qty       int
}

func (s *orderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error) {
	log := logger.From(ctx)

	order, reservations, err := s.prepare(ctx, input)
	if err != nil {
		log.Warn("Order rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	log.Info("Placing order", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
		"lines":    len(order.Items),
	})

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.FromStore(tx.Error, "begin order transaction", "order", "")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Error("Panic during order placement, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"order_id": order.ID,
			})
			panic(r)
		}
	}()

	for _, res := range reservations {
		if err := s.reserve(tx, res); err != nil {
			tx.Rollback()
			log.Warn("Stock reservation failed, order rolled back", map[string]interface{}{
				"order_id":   order.ID,
				"variant_id": res.variantID,
				"error":      err.Error(),
			})
			return nil, err
		}
	}

	if err := s.orderRepo.Create(tx, order); err != nil {
		tx.Rollback()
		return nil, apperrors.FromStore(err, "create order", "order", order.ID)
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit order", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, apperrors.FromStore(err, "commit order", "order", order.ID)
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
	})

	s.afterCommit(ctx, order)
	return order, nil
}

// prepare validates input and builds the order with frozen prices. Nothing is written.
func (s *orderService) prepare(ctx context.Context, input PlaceOrderInput) (*model.Order, []reservation, error) {
	name := strings.TrimSpace(input.CustomerName)
	phone := strings.TrimSpace(input.Phone)
	address := strings.TrimSpace(input.Address)

	if name == "" {
		return nil, nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Укажите имя", "order", "customer_name")
	}
	if phone == "" {
		return nil, nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Укажите телефон", "order", "phone")
	}
	if !input.Method.Valid() {
		return nil, nil, apperrors.ValidationOn(apperrors.ValidationInvalidOrder, "Выберите способ получения", "order", "method")
	}
	if input.Method == model.MethodCourier && address == "" {
		return nil, nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Для доставки курьером укажите адрес", "order", "address")
	}
	if input.Method == model.MethodPickup {
		address = ""
	}
	if len(input.Items) == 0 {
		return nil, nil, apperrors.ValidationOn(apperrors.ValidationInvalidOrder, "Корзина пуста", "order", "items")
	}

	order := &model.Order{
		ID:             newOrderID(s.now()),
		TelegramUserID: input.TelegramUserID,
		CustomerName:   name,
		Phone:          phone,
		Method:         input.Method,
		Address:        address,
		Comment:        strings.TrimSpace(input.Comment),
		OrderStatus:    model.OrderStatusCreated,
		PaymentStatus:  model.PaymentStatusUnpaid,
		Items:          make([]model.OrderLine, 0, len(input.Items)),
	}

	products := make(map[string]*model.Product)
	byVariant := make(map[string]*reservation)
	var reservations []*reservation

	for _, item := range input.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" || item.Qty <= 0 {
			return nil, nil, apperrors.ValidationOn(apperrors.ValidationInvalidOrder, "Некорректная позиция заказа", "product", productID)
		}

		product, ok := products[productID]
		if !ok {
			p, err := s.productRepo.FindByID(ctx, productID)
			if err != nil {
				return nil, nil, apperrors.FromStore(err, "find product", "product", productID)
			}
			if !p.IsActive {
				return nil, nil, apperrors.NotFoundEntity(apperrors.ProductNotFound, "product", productID)
			}
			products[productID] = p
			product = p
		}

		variant, err := s.resolveVariant(ctx, product, item)
		if err != nil {
			return nil, nil, err
		}

		res, seen := byVariant[variant.ID]
		if !seen {
			res = &reservation{productID: product.ID, variantID: variant.ID, expected: variant.Stock}
			byVariant[variant.ID] = res
			reservations = append(reservations, res)
		}
		// compared before adding so a huge qty cannot wrap the sum
		if item.Qty > res.expected-res.qty {
			return nil, nil, apperrors.InsufficientStock(product.ID, variant.ID, item.Qty, res.expected-res.qty)
		}
		res.qty += item.Qty

		price := catalog.ResolvePrice(product, variant)
		if price > 0 && int64(item.Qty) > (math.MaxInt64-order.Total)/price {
			return nil, nil, apperrors.ValidationOn(apperrors.ValidationInvalidOrder, "Некорректная сумма заказа", "product", product.ID)
		}
		order.Items = append(order.Items, model.OrderLine{
			ProductID:      product.ID,
			VariantID:      variant.ID,
			TitleSnapshot:  product.Title,
			PriceSnapshot:  price,
			OptionSnapshot: catalog.Describe(product.OptionGroups, variant.Selections),
			Qty:            item.Qty,
		})
		order.Total += price * int64(item.Qty)
	}

	out := make([]reservation, len(reservations))
	for i, r := range reservations {
		out[i] = *r
	}
	return order, out, nil
}

// resolveVariant picks the explicit variant, else the one matching selections,
// else the product's primary variant. Only active variants are orderable.
func (s *orderService) resolveVariant(ctx context.Context, product *model.Product, item OrderItemInput) (*model.Variant, error) {
	variantID := strings.TrimSpace(item.VariantID)

	switch {
	case variantID != "":
		for i := range product.Variants {
			v := &product.Variants[i]
			if v.ID == variantID && v.IsActive {
				return v, nil
			}
		}
		return nil, apperrors.NotFoundEntity(apperrors.VariantNotFound, "variant", variantID)

	case len(item.Selections) > 0:
		v, err := s.productRepo.FindBySelections(ctx, product.ID, item.Selections)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ValidationOn(apperrors.ValidationInvalidVariant,
					"Такой комбинации опций нет в наличии", "product", product.ID)
			}
			return nil, apperrors.FromStore(err, "find variant", "variant", "")
		}
		return v, nil
	}

	v, ok := catalog.PrimaryVariant(product.Variants)
	if !ok || !v.IsActive {
		return nil, apperrors.NotFoundEntity(apperrors.VariantNotFound, "variant", "")
	}
	return &v, nil
}

// reserve decrements stock keyed on the stock seen while resolving. A lost
// race is retried once against a fresh read.
func (s *orderService) reserve(tx *gorm.DB, res reservation) error {
	ok, err := s.variantRepo.DecrementStock(tx, res.variantID, res.expected, res.qty)
	if err != nil {
		return apperrors.FromStore(err, "decrement stock", "variant", res.variantID)
	}
	if ok {
		return nil
	}

	current, err := s.variantRepo.GetStock(tx, res.variantID)
	if err != nil {
		return apperrors.FromStore(err, "read stock", "variant", res.variantID)
	}
	if current < res.qty {
		return apperrors.InsufficientStock(res.productID, res.variantID, res.qty, current)
	}

	ok, err = s.variantRepo.DecrementStock(tx, res.variantID, current, res.qty)
	if err != nil {
		return apperrors.FromStore(err, "decrement stock", "variant", res.variantID)
	}
	if !ok {
		return apperrors.InsufficientStock(res.productID, res.variantID, res.qty, current)
	}
	return nil
}

// afterCommit refreshes the storefront and sends notifications. Nothing here
// can fail the order.
func (s *orderService) afterCommit(ctx context.Context, order *model.Order) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Delete(bg, catalogCacheKey); err != nil {
			logger.From(ctx).Warn("Failed to invalidate catalog cache", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	notify.Broadcast(bg, s.notes.Notifier, s.notes.AdminIDs, notify.NewOrderForAdmin(order))
	if order.TelegramUserID != nil {
		notify.Broadcast(bg, s.notes.Notifier, []int64{*order.TelegramUserID}, notify.OrderAccepted(s.notes.StoreName, order))
	}
}

var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusCreated:   {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed: {model.OrderStatusCompleted, model.OrderStatusCancelled},
}

func canTransition(from, to model.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus applies admin status changes. Re-applying the current value is
// a no-op; cancelling never restocks.
func (s *orderService) UpdateStatus(ctx context.Context, orderID string, update StatusUpdate) (*model.Order, error) {
	log := logger.From(ctx)

	if update.OrderStatus == "" && update.PaymentStatus == "" {
		return nil, apperrors.ValidationOn(apperrors.ValidationRequired, "Нечего обновлять", "order", orderID)
	}
	if update.OrderStatus != "" && !update.OrderStatus.Valid() {
		return nil, apperrors.ValidationOn(apperrors.ValidationTransition, "Неизвестный статус заказа", "order", orderID)
	}
	if update.PaymentStatus != "" && !update.PaymentStatus.Valid() {
		return nil, apperrors.ValidationOn(apperrors.ValidationTransition, "Неизвестный статус оплаты", "order", orderID)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, apperrors.FromStore(err, "find order", "order", orderID)
	}

	changeOrder := update.OrderStatus != "" && update.OrderStatus != order.OrderStatus
	changePayment := update.PaymentStatus != "" && update.PaymentStatus != order.PaymentStatus

	if changeOrder && !canTransition(order.OrderStatus, update.OrderStatus) {
		return nil, apperrors.ValidationOn(apperrors.ValidationTransition,
			fmt.Sprintf("Нельзя перевести заказ из статуса «%s» в «%s»", order.OrderStatus.Label(), update.OrderStatus.Label()),
			"order", orderID)
	}
	if changePayment && !(order.PaymentStatus == model.PaymentStatusUnpaid && update.PaymentStatus == model.PaymentStatusPaidCash) {
		return nil, apperrors.ValidationOn(apperrors.ValidationTransition, "Оплату нельзя отменить", "order", orderID)
	}
	if !changeOrder && !changePayment {
		log.Debug("Order status unchanged", map[string]interface{}{
			"order_id": orderID,
		})
		return order, nil
	}

	// both changes land together or not at all
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if changeOrder {
			ok, err := s.orderRepo.UpdateStatus(tx, orderID, order.OrderStatus, update.OrderStatus)
			if err != nil {
				return apperrors.FromStore(err, "update order status", "order", orderID)
			}
			if !ok {
				return apperrors.ValidationOn(apperrors.ValidationTransition, "Статус заказа уже изменён, обновите страницу", "order", orderID)
			}
		}
		if changePayment {
			ok, err := s.orderRepo.UpdatePaymentStatus(tx, orderID, order.PaymentStatus, update.PaymentStatus)
			if err != nil {
				return apperrors.FromStore(err, "update payment status", "order", orderID)
			}
			if !ok {
				return apperrors.ValidationOn(apperrors.ValidationTransition, "Статус оплаты уже изменён, обновите страницу", "order", orderID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changeOrder {
		order.OrderStatus = update.OrderStatus
	}
	if changePayment {
		order.PaymentStatus = update.PaymentStatus
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id":       orderID,
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
	})

	if order.TelegramUserID != nil {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		notify.Broadcast(bg, s.notes.Notifier, []int64{*order.TelegramUserID},
			notify.StatusChanged(s.notes.StoreName, order, changeOrder, changePayment))
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation(apperrors.ValidationInvalidInput, "Неизвестный статус заказа")
	}
	orders, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "list orders", "order", "")
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, "find order", "order", id)
	}
	return order, nil
}

func (s *orderService) Stats(ctx context.Context) (*repository.OrderStats, error) {
	stats, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, apperrors.FromStore(err, "order stats", "order", "")
	}
	return stats, nil
}

// newOrderID is short and sortable: YYMMDD-HHMMSS-XXXXXX.
func newOrderID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return now.Format("060102-150405") + "-" + suffix
}
