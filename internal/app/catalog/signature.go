// Package catalog holds the pure variant logic: option schema validation,
// selection signatures, combinatorial generation and the storefront projection.
// Nothing here touches storage.
package catalog

import (
	"sort"
	"strings"

	"github.com/store177/shop-backend/internal/app/model"
)

const (
	pairSep  = "|"
	kvSep    = ":"
	valueSep = ","
)

var escaper = strings.NewReplacer(`\`, `\\`, pairSep, `\|`, kvSep, `\:`, valueSep, `\,`)

// Signature is the canonical identity of a selection over the selectable
// groups of a schema: "groupId:value" pairs sorted by group id and joined by
// "|". A checkbox set is sorted and joined by ",". A missing entry and the
// empty sentinel both encode as an empty value, so group order never matters.
//
// Generation, lookup and duplicate detection all go through this function.
func Signature(groups []model.OptionGroup, sel model.Selections) string {
	pairs := make([]string, 0, len(groups))
	for _, g := range groups {
		if !g.InputType.Selectable() {
			continue
		}
		pairs = append(pairs, escaper.Replace(g.ID)+kvSep+encodeChoice(g, sel[g.ID]))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, pairSep)
}

func encodeChoice(g model.OptionGroup, c model.Choice) string {
	values := choiceValues(g, c)
	if g.InputType != model.InputCheckbox {
		if len(values) == 0 {
			return ""
		}
		return escaper.Replace(values[0])
	}
	for i, v := range values {
		values[i] = escaper.Replace(v)
	}
	sort.Strings(values)
	return strings.Join(values, valueSep)
}

// choiceValues normalizes a choice to trimmed, non-empty, de-duplicated ids.
// Checkbox groups accept a single string as a one-element set; single-value
// groups accept a one-element set as that value.
func choiceValues(g model.OptionGroup, c model.Choice) []string {
	var raw []string
	if c.Multi {
		raw = c.Set
	} else {
		raw = []string{c.Value}
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if g.InputType != model.InputCheckbox && len(out) > 1 {
		// more than one value for a single-choice group never matches anything
		return []string{strings.Join(out, valueSep)}
	}
	return out
}

// Filled reports whether sel carries a value for every required selectable group.
// It returns the first unfilled group id otherwise.
func Filled(groups []model.OptionGroup, sel model.Selections) (string, bool) {
	for _, g := range groups {
		if !g.InputType.Selectable() || !g.Required {
			continue
		}
		if len(choiceValues(g, sel[g.ID])) == 0 {
			return g.ID, false
		}
	}
	return "", true
}

// MatchSelections returns the active variant whose selections equal query
// under Signature. It reports false when a required group is unfilled in the
// query or no active variant matches.
func MatchSelections(groups []model.OptionGroup, variants []model.Variant, query model.Selections) (model.Variant, bool) {
	if _, ok := Filled(groups, query); !ok {
		return model.Variant{}, false
	}
	want := Signature(groups, query)
	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		if Signature(groups, v.Selections) == want {
			return v, true
		}
	}
	return model.Variant{}, false
}
