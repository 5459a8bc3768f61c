package catalog

import (
	"sort"

	"github.com/store177/shop-backend/internal/app/model"
	apperrors "github.com/store177/shop-backend/internal/errors"
)

// emptyChoice is the "no selection" candidate for optional groups.
const emptyChoice = ""

// Report describes what a generation run did to the existing variant set.
type Report struct {
	Kept    int             `json:"kept"`
	Created int             `json:"created"`
	Dropped []model.Variant `json:"dropped"` // existing variants with no surviving combination
}

// GenerateVariants builds one variant per valid combination of the schema's
// values. Existing variants whose Signature survives keep their id, pricing,
// old price, stock, sku and active flag; new combinations start at
// {final 0, stock 0, active}. Existing variants that match nothing are
// returned in Report.Dropped and are not part of the result.
//
// Checkbox and text groups cannot be generated and fail with
// GenerationUnsupported naming the first such group.
func GenerateVariants(productID string, groups []model.OptionGroup, existing []model.Variant, newID func() string) ([]model.Variant, Report, error) {
	for _, g := range groups {
		if g.InputType == model.InputCheckbox || g.InputType == model.InputText {
			return nil, Report{}, apperrors.Unsupported(g.ID, string(g.InputType))
		}
	}

	combos := combinations(groups)

	byPosition := append([]model.Variant(nil), existing...)
	sort.SliceStable(byPosition, func(i, j int) bool { return byPosition[i].Position < byPosition[j].Position })

	// the first variant by position owns a signature; later duplicates are dropped
	index := make(map[string]int, len(byPosition))
	for i, v := range byPosition {
		sig := Signature(groups, v.Selections)
		if _, ok := index[sig]; !ok {
			index[sig] = i
		}
	}

	used := make([]bool, len(byPosition))
	out := make([]model.Variant, 0, len(combos))
	report := Report{Dropped: []model.Variant{}}

	for pos, sel := range combos {
		sig := Signature(groups, sel)
		if i, ok := index[sig]; ok && !used[i] {
			used[i] = true
			v := byPosition[i]
			v.Selections = sel
			v.Position = pos
			out = append(out, v)
			report.Kept++
			continue
		}
		out = append(out, model.Variant{
			ID:         newID(),
			ProductID:  productID,
			Selections: sel,
			Pricing:    model.Pricing{Mode: model.PricingFinal, Amount: 0},
			Stock:      0,
			IsActive:   true,
			Position:   pos,
		})
		report.Created++
	}

	for i, v := range byPosition {
		if !used[i] {
			report.Dropped = append(report.Dropped, v)
		}
	}
	return out, report, nil
}

// combinations enumerates the cartesian product in schema order: groups in
// order, values in order, the empty candidate first. Combinations leaving a
// required group empty are skipped.
func combinations(groups []model.OptionGroup) []model.Selections {
	combos := []model.Selections{{}}
	for _, g := range groups {
		candidates := make([]string, 0, len(g.Values)+1)
		if !g.Required || g.AllowEmpty {
			candidates = append(candidates, emptyChoice)
		}
		for _, v := range g.Values {
			candidates = append(candidates, v.ID)
		}

		next := make([]model.Selections, 0, len(combos)*len(candidates))
		for _, base := range combos {
			for _, c := range candidates {
				if g.Required && c == emptyChoice {
					continue
				}
				sel := make(model.Selections, len(base)+1)
				for k, v := range base {
					sel[k] = v
				}
				sel[g.ID] = model.One(c)
				next = append(next, sel)
			}
		}
		combos = next
	}
	return combos
}
