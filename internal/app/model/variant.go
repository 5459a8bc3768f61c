package model

import (
	"time"
)

type PricingMode string

const (
	PricingFinal PricingMode = "final" // amount is the absolute price
	PricingDelta PricingMode = "delta" // amount is added to the product base price
)

func (m PricingMode) Valid() bool {
	return m == PricingFinal || m == PricingDelta
}

type Pricing struct {
	Mode   PricingMode `gorm:"type:varchar(10);not null;default:'final'" json:"mode"`
	Amount int64       `gorm:"not null;default:0" json:"amount"`
}

type Variant struct {
	ID         string     `gorm:"type:varchar(36);primarykey" json:"id"`
	ProductID  string     `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Selections Selections `gorm:"serializer:json;type:text" json:"selections"`
	// canonical selection key, recomputed on every save
	Signature string     `gorm:"type:text;not null;default:''" json:"-"`
	Pricing   Pricing    `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	OldPrice  *int64     `json:"old_price,omitempty"` // strike-through price
	Stock     int        `gorm:"not null;default:0;check:chk_variants_stock,stock >= 0" json:"stock"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	SKU       *string    `gorm:"type:varchar(100)" json:"sku,omitempty"`
	Position  int        `gorm:"not null;default:0" json:"position"` // insertion order within the product
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Variant) TableName() string {
	return "product_variants"
}
