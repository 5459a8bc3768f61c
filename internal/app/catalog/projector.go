package catalog

import (
	"sort"
	"strings"

	"github.com/store177/shop-backend/internal/app/model"
)

// CatalogItem is the flattened storefront view of one product.
type CatalogItem struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Brand       string                 `json:"brand"`
	Condition   model.ProductCondition `json:"condition"`
	Description string                 `json:"description,omitempty"`
	ImageURL    string                 `json:"image_url,omitempty"`
	VariantID   string                 `json:"variant_id,omitempty"`
	Price       int64                  `json:"price"`
	OldPrice    *int64                 `json:"old_price,omitempty"`
	Stock       int                    `json:"stock"`
	HasOptions  bool                   `json:"has_options"`
}

// PrimaryVariant is the first active variant by position, or the first
// variant when none is active.
func PrimaryVariant(variants []model.Variant) (model.Variant, bool) {
	if len(variants) == 0 {
		return model.Variant{}, false
	}
	ordered := append([]model.Variant(nil), variants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	for _, v := range ordered {
		if v.IsActive {
			return v, true
		}
	}
	return ordered[0], true
}

// ResolvePrice turns a variant's pricing into an absolute price. A discount
// larger than the base price resolves to zero, never below.
func ResolvePrice(p *model.Product, v *model.Variant) int64 {
	price := v.Pricing.Amount
	if v.Pricing.Mode == model.PricingDelta {
		price = p.BasePrice + v.Pricing.Amount
	}
	if price < 0 {
		return 0
	}
	return price
}

// Project builds the storefront view. A product without variants shows its
// base price and zero stock.
func Project(p *model.Product, variants []model.Variant) CatalogItem {
	item := CatalogItem{
		ID:          p.ID,
		Title:       p.Title,
		Brand:       p.Brand,
		Condition:   p.Condition,
		Description: p.Description,
		ImageURL:    p.CoverURL(),
		Price:       p.BasePrice,
		HasOptions:  hasSelectableGroups(p.OptionGroups),
	}

	primary, ok := PrimaryVariant(variants)
	if !ok {
		return item
	}
	item.VariantID = primary.ID
	item.Price = ResolvePrice(p, &primary)
	item.OldPrice = primary.OldPrice
	item.Stock = primary.Stock
	return item
}

func hasSelectableGroups(groups []model.OptionGroup) bool {
	for _, g := range groups {
		if g.InputType.Selectable() {
			return true
		}
	}
	return false
}

// Describe renders selections with group names and value labels,
// e.g. "Память: 128GB; Цвет: Чёрный". Empty choices are omitted.
func Describe(groups []model.OptionGroup, sel model.Selections) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		if !g.InputType.Selectable() {
			continue
		}
		values := choiceValues(g, sel[g.ID])
		if len(values) == 0 {
			continue
		}
		labels := make([]string, len(values))
		for i, id := range values {
			labels[i] = labelOf(g, id)
		}
		parts = append(parts, g.Name+": "+strings.Join(labels, ", "))
	}
	return strings.Join(parts, "; ")
}

func labelOf(g model.OptionGroup, id string) string {
	for _, v := range g.Values {
		if v.ID == id {
			return v.Label
		}
	}
	return id
}
