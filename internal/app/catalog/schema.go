package catalog

import (
	"fmt"
	"strings"

	"github.com/store177/shop-backend/internal/app/model"
	apperrors "github.com/store177/shop-backend/internal/errors"
)

// ValidateGroups checks an option schema and returns its canonical form:
// same order, names and labels trimmed, value ids defaulted to labels,
// text groups stripped of values.
func ValidateGroups(groups []model.OptionGroup) ([]model.OptionGroup, error) {
	out := make([]model.OptionGroup, 0, len(groups))
	ids := make(map[string]struct{}, len(groups))

	for i, g := range groups {
		g.ID = strings.TrimSpace(g.ID)
		g.Name = strings.TrimSpace(g.Name)

		if g.ID == "" {
			return nil, apperrors.ValidationOn(apperrors.ValidationInvalidGroup,
				fmt.Sprintf("У группы опций #%d должен быть id", i+1), "group", "")
		}
		if _, dup := ids[g.ID]; dup {
			return nil, groupErr(g, "Повторяющийся id группы опций")
		}
		ids[g.ID] = struct{}{}

		if g.Name == "" {
			return nil, groupErr(g, "У группы опций должно быть имя")
		}
		if !g.InputType.Valid() {
			return nil, groupErr(g, "Некорректный тип ввода группы")
		}

		if g.InputType == model.InputText {
			g.Values = []model.OptionValue{}
			out = append(out, g)
			continue
		}

		values, err := validateValues(g)
		if err != nil {
			return nil, err
		}
		g.Values = values
		out = append(out, g)
	}
	return out, nil
}

func validateValues(g model.OptionGroup) ([]model.OptionValue, error) {
	if len(g.Values) == 0 {
		return nil, groupErr(g, fmt.Sprintf("Группа %q должна иметь значения", g.Name))
	}

	labels := make(map[string]struct{}, len(g.Values))
	ids := make(map[string]struct{}, len(g.Values))
	values := make([]model.OptionValue, 0, len(g.Values))

	for _, v := range g.Values {
		v.Label = strings.TrimSpace(v.Label)
		v.ID = strings.TrimSpace(v.ID)
		if v.Label == "" {
			return nil, groupErr(g, fmt.Sprintf("Группа %q содержит пустые значения", g.Name))
		}
		if v.ID == "" {
			v.ID = v.Label
		}

		key := strings.ToLower(v.Label)
		if _, dup := labels[key]; dup {
			return nil, groupErr(g, fmt.Sprintf("Группа %q содержит дубли значений", g.Name))
		}
		labels[key] = struct{}{}

		if _, dup := ids[v.ID]; dup {
			return nil, groupErr(g, fmt.Sprintf("Группа %q содержит дубли id значений", g.Name))
		}
		ids[v.ID] = struct{}{}

		values = append(values, v)
	}
	return values, nil
}

func groupErr(g model.OptionGroup, msg string) error {
	return apperrors.ValidationOn(apperrors.ValidationInvalidGroup, msg, "group", g.ID)
}

// ValidateVariants checks a full variant set against an already validated
// schema. Selections are normalized in place: text group entries are removed
// and checkbox values become sets.
func ValidateVariants(groups []model.OptionGroup, variants []model.Variant) error {
	byID := make(map[string]model.OptionGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	variantIDs := make(map[string]struct{}, len(variants))
	skus := make(map[string]struct{}, len(variants))
	signatures := make(map[string]string, len(variants))

	for i := range variants {
		v := &variants[i]

		if strings.TrimSpace(v.ID) == "" {
			return apperrors.ValidationOn(apperrors.ValidationInvalidVariant, "У варианта должен быть id", "variant", "")
		}
		if _, dup := variantIDs[v.ID]; dup {
			return variantErr(v, "Повторяющийся id варианта")
		}
		variantIDs[v.ID] = struct{}{}

		if v.Pricing.Mode == "" {
			v.Pricing.Mode = model.PricingFinal
		}
		if !v.Pricing.Mode.Valid() {
			return variantErr(v, "Некорректный режим цены")
		}
		if v.Pricing.Mode == model.PricingFinal && v.Pricing.Amount < 0 {
			return variantErr(v, "Цена не может быть отрицательной")
		}
		if v.OldPrice != nil && *v.OldPrice < 0 {
			return variantErr(v, "Старая цена не может быть отрицательной")
		}
		if v.Stock < 0 {
			return variantErr(v, "Остаток не может быть отрицательным")
		}
		if v.SKU != nil {
			sku := strings.TrimSpace(*v.SKU)
			if sku == "" {
				v.SKU = nil
			} else {
				if _, dup := skus[sku]; dup {
					return variantErr(v, "Повторяющийся артикул")
				}
				skus[sku] = struct{}{}
				v.SKU = &sku
			}
		}

		normalized, err := normalizeSelections(byID, v)
		if err != nil {
			return err
		}
		v.Selections = normalized

		if group, ok := Filled(groups, v.Selections); !ok {
			return apperrors.ValidationOn(apperrors.ValidationInvalidVariant,
				"Нельзя иметь вариант без полного набора обязательных опций", "group", group)
		}

		if !v.IsActive {
			continue
		}
		sig := Signature(groups, v.Selections)
		if other, dup := signatures[sig]; dup {
			return variantErr(v, fmt.Sprintf("Вариант повторяет комбинацию варианта %s", other))
		}
		signatures[sig] = v.ID
	}
	return nil
}

func normalizeSelections(groups map[string]model.OptionGroup, v *model.Variant) (model.Selections, error) {
	out := make(model.Selections, len(v.Selections))
	for groupID, choice := range v.Selections {
		g, ok := groups[groupID]
		if !ok {
			return nil, variantErr(v, fmt.Sprintf("Неизвестная группа опций %q", groupID))
		}
		if !g.InputType.Selectable() {
			continue
		}

		values := choiceValues(g, choice)
		for _, val := range values {
			if !hasValue(g, val) {
				return nil, variantErr(v, fmt.Sprintf("Группа %q не содержит значение %q", g.Name, val))
			}
		}

		switch {
		case g.InputType == model.InputCheckbox:
			out[groupID] = model.Many(values...)
		case len(values) == 0:
			if g.Required {
				// left for Filled to report
				continue
			}
			out[groupID] = model.One("")
		default:
			out[groupID] = model.One(values[0])
		}
	}
	return out, nil
}

func hasValue(g model.OptionGroup, id string) bool {
	for _, v := range g.Values {
		if v.ID == id {
			return true
		}
	}
	return false
}

func variantErr(v *model.Variant, msg string) error {
	return apperrors.ValidationOn(apperrors.ValidationInvalidVariant, msg, "variant", v.ID)
}
