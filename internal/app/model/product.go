package model

import (
	"time"
)

type ProductCondition string

const (
	ConditionNew  ProductCondition = "new"
	ConditionUsed ProductCondition = "used"
)

func (c ProductCondition) Valid() bool {
	return c == ConditionNew || c == ConditionUsed
}

type Product struct {
	ID          string           `gorm:"type:varchar(36);primarykey" json:"id"`
	Title       string           `gorm:"not null" json:"title"`
	Brand       string           `gorm:"type:varchar(100)" json:"brand"`
	Description string           `gorm:"type:text" json:"description,omitempty"`
	Condition   ProductCondition `gorm:"type:varchar(10);default:'new'" json:"condition"`
	BasePrice   int64            `gorm:"not null;default:0" json:"base_price"` // rubles; delta variants add to this
	IsActive    bool             `gorm:"not null;index" json:"is_active"`
	// ordered; replaced wholesale on every save
	OptionGroups []OptionGroup `gorm:"serializer:json;type:text" json:"option_groups"`
	CreatedAt    time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	// Relationships
	Variants []Variant      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
	Images   []ProductImage `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// CoverURL is the first image by position, or "" when the product has none.
func (p *Product) CoverURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	best := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Position < best.Position {
			best = img
		}
	}
	return best.URL
}

type ProductImage struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	ProductID string    `gorm:"type:varchar(36);index;not null" json:"product_id"`
	URL       string    `gorm:"not null" json:"url"`
	Key       string    `gorm:"type:varchar(255)" json:"key,omitempty"` // object key in the bucket
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
