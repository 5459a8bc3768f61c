package model

import (
	"time"
)

type OrderStatus string
type PaymentStatus string
type DeliveryMethod string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"

	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaidCash PaymentStatus = "paid_cash"

	MethodPickup  DeliveryMethod = "pickup"
	MethodCourier DeliveryMethod = "courier"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusConfirmed, OrderStatusCancelled, OrderStatusCompleted:
		return true
	}
	return false
}

// Label is the Russian name shown to customers and admins.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusCreated:
		return "Создан"
	case OrderStatusConfirmed:
		return "Подтверждён"
	case OrderStatusCancelled:
		return "Отменён"
	case OrderStatusCompleted:
		return "Завершён"
	}
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPaidCash
}

func (s PaymentStatus) Label() string {
	switch s {
	case PaymentStatusUnpaid:
		return "Не оплачен"
	case PaymentStatusPaidCash:
		return "Оплачен наличными"
	}
	return string(s)
}

func (m DeliveryMethod) Valid() bool {
	return m == MethodPickup || m == MethodCourier
}

func (m DeliveryMethod) Label() string {
	if m == MethodCourier {
		return "Курьер"
	}
	return "Самовывоз"
}

type Order struct {
	ID             string         `gorm:"type:varchar(36);primarykey" json:"id"`
	TelegramUserID *int64         `gorm:"index" json:"telegram_user_id,omitempty"` // set when placed from the mini-app
	CustomerName   string         `gorm:"not null" json:"customer_name"`
	Phone          string         `gorm:"type:varchar(32);not null" json:"phone"`
	Method         DeliveryMethod `gorm:"type:varchar(10);not null" json:"method"`
	Address        string         `gorm:"type:text" json:"address,omitempty"`
	Comment        string         `gorm:"type:text" json:"comment,omitempty"`
	Total          int64          `gorm:"not null" json:"total"` // frozen at creation
	OrderStatus    OrderStatus    `gorm:"type:varchar(20);not null;default:'created';index" json:"order_status"`
	PaymentStatus  PaymentStatus  `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Items []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderLine holds snapshots only; product and variant ids are kept as plain
// references so later catalog edits or deletes never touch placed orders.
type OrderLine struct {
	ID             uint   `gorm:"primarykey" json:"-"`
	OrderID        string `gorm:"type:varchar(36);not null;index" json:"-"`
	Position       int    `gorm:"not null" json:"-"`
	ProductID      string `gorm:"type:varchar(36);not null;index" json:"product_id"`
	VariantID      string `gorm:"type:varchar(36);not null" json:"variant_id"`
	TitleSnapshot  string `gorm:"not null" json:"title_snapshot"`
	PriceSnapshot  int64  `gorm:"not null" json:"price_snapshot"`
	OptionSnapshot string `gorm:"type:text" json:"option_snapshot,omitempty"` // "Память: 128GB; Цвет: Black"
	Qty            int    `gorm:"not null" json:"qty"`
}

func (OrderLine) TableName() string {
	return "order_lines"
}

// LineTotal is price snapshot times quantity.
func (l OrderLine) LineTotal() int64 {
	return l.PriceSnapshot * int64(l.Qty)
}
