// Package importer loads the legacy flat price list (one row per color and
// memory combination) into the option-group catalog.
package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/store177/shop-backend/internal/app/model"
	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	MemoryGroupID = "mem"
	ColorGroupID  = "color"
)

// Row is one legacy price list line.
type Row struct {
	Line      int
	Title     string
	Brand     string
	Condition model.ProductCondition
	Memory    string
	Color     string
	Price     int64
	OldPrice  *int64
	Stock     int
	SKU       string
}

// LegacyProduct groups the rows sharing title, brand and condition.
type LegacyProduct struct {
	Title     string
	Brand     string
	Condition model.ProductCondition
	Rows      []Row
}

// RowError is a line that could not be parsed or merged. The rest of the
// sheet is still imported.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

var headerAliases = map[string][]string{
	"title":     {"title", "название", "модель"},
	"brand":     {"brand", "бренд"},
	"condition": {"condition", "состояние"},
	"memory":    {"memory", "память"},
	"color":     {"color", "цвет"},
	"price":     {"price", "цена"},
	"old_price": {"old_price", "старая цена"},
	"stock":     {"stock", "остаток"},
	"sku":       {"sku", "артикул"},
}

// ReadXLSX parses the given sheet (the first one when sheet is empty).
// The first row is a header; columns are matched by name.
func ReadXLSX(r io.Reader, sheet string) ([]LegacyProduct, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in sheet %q", sheet)
	}

	columns := mapHeader(rows[0])
	for _, required := range []string{"title", "price"} {
		if _, ok := columns[required]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", required)
		}
	}

	var parsed []Row
	var rowErrs []RowError
	for i, cells := range rows[1:] {
		line := i + 2
		if blank(cells) {
			continue
		}
		row, err := parseRow(line, cells, columns)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		parsed = append(parsed, row)
	}

	logger.Debug("Legacy sheet parsed", map[string]interface{}{
		"sheet":  sheet,
		"rows":   len(parsed),
		"errors": len(rowErrs),
	})
	return Group(parsed), rowErrs, nil
}

func mapHeader(header []string) map[string]int {
	columns := make(map[string]int)
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(cell))
		for key, aliases := range headerAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, seen := columns[key]; !seen {
						columns[key] = i
					}
				}
			}
		}
	}
	return columns
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(line int, cells []string, columns map[string]int) (Row, error) {
	cell := func(key string) string {
		i, ok := columns[key]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	row := Row{
		Line:   line,
		Title:  cell("title"),
		Brand:  cell("brand"),
		Memory: cell("memory"),
		Color:  cell("color"),
		SKU:    cell("sku"),
	}
	if row.Title == "" {
		return row, fmt.Errorf("empty title")
	}

	row.Condition = model.ConditionNew
	switch strings.ToLower(cell("condition")) {
	case "used", "б/у", "бу":
		row.Condition = model.ConditionUsed
	}

	price, err := parseMoney(cell("price"))
	if err != nil {
		return row, fmt.Errorf("invalid price: %w", err)
	}
	row.Price = price

	if raw := cell("old_price"); raw != "" {
		old, err := parseMoney(raw)
		if err != nil {
			return row, fmt.Errorf("invalid old price: %w", err)
		}
		row.OldPrice = &old
	}

	if raw := cell("stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return row, fmt.Errorf("invalid stock %q", raw)
		}
		row.Stock = stock
	}
	return row, nil
}

// parseMoney accepts whole rubles with optional spaces and a trailing
// currency mark, e.g. "79 990 ₽".
func parseMoney(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '₽':
			return -1
		}
		return r
	}, s)
	cleaned = strings.TrimSuffix(strings.TrimSuffix(cleaned, "руб."), "р.")
	if cleaned == "" {
		return 0, fmt.Errorf("empty value")
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(cleaned, 64)
		if ferr != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %q", s)
	}
	return n, nil
}

// Group merges rows into products keyed by title, brand and condition,
// preserving first-seen order.
func Group(rows []Row) []LegacyProduct {
	var out []LegacyProduct
	index := make(map[string]int)
	for _, r := range rows {
		key := strings.ToLower(r.Title) + "\x00" + strings.ToLower(r.Brand) + "\x00" + string(r.Condition)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, LegacyProduct{Title: r.Title, Brand: r.Brand, Condition: r.Condition})
		}
		out[i].Rows = append(out[i].Rows, r)
	}
	return out
}

// BuildOptions converts legacy rows into a memory and a color group plus
// one final-priced variant per row. A group exists only when some row
// fills it and is required only when every row does. Rows repeating a
// combination already seen are reported and skipped.
func BuildOptions(p LegacyProduct) ([]model.OptionGroup, []model.Variant, []RowError) {
	memory := newValueSet()
	color := newValueSet()
	for _, r := range p.Rows {
		memory.add(r.Memory)
		color.add(r.Color)
	}

	var groups []model.OptionGroup
	if memory.used() {
		groups = append(groups, memory.group(MemoryGroupID, "Память", len(p.Rows)))
	}
	if color.used() {
		groups = append(groups, color.group(ColorGroupID, "Цвет", len(p.Rows)))
	}
	if groups == nil {
		groups = []model.OptionGroup{}
	}

	var variants []model.Variant
	var rowErrs []RowError
	seen := make(map[string]int)
	for _, r := range p.Rows {
		sel := model.Selections{}
		if memory.used() {
			sel[MemoryGroupID] = model.One(memory.id(r.Memory))
		}
		if color.used() {
			sel[ColorGroupID] = model.One(color.id(r.Color))
		}

		combo := memory.id(r.Memory) + "\x00" + color.id(r.Color)
		if first, dup := seen[combo]; dup {
			rowErrs = append(rowErrs, RowError{Line: r.Line, Reason: fmt.Sprintf("duplicates line %d", first)})
			continue
		}
		seen[combo] = r.Line

		v := model.Variant{
			Selections: sel,
			Pricing:    model.Pricing{Mode: model.PricingFinal, Amount: r.Price},
			OldPrice:   r.OldPrice,
			Stock:      r.Stock,
			IsActive:   true,
		}
		if r.SKU != "" {
			sku := r.SKU
			v.SKU = &sku
		}
		variants = append(variants, v)
	}
	return groups, variants, rowErrs
}

// valueSet collects distinct labels case-insensitively; the first spelling wins.
type valueSet struct {
	labels []string
	ids    map[string]string
	filled int
}

func newValueSet() *valueSet {
	return &valueSet{ids: make(map[string]string)}
}

func (s *valueSet) add(label string) {
	if label == "" {
		return
	}
	s.filled++
	key := strings.ToLower(label)
	if _, ok := s.ids[key]; !ok {
		s.ids[key] = label
		s.labels = append(s.labels, label)
	}
}

func (s *valueSet) used() bool {
	return len(s.labels) > 0
}

func (s *valueSet) id(label string) string {
	if label == "" {
		return ""
	}
	return s.ids[strings.ToLower(label)]
}

func (s *valueSet) group(id, name string, rows int) model.OptionGroup {
	values := make([]model.OptionValue, 0, len(s.labels))
	for _, l := range s.labels {
		values = append(values, model.OptionValue{ID: l, Label: l})
	}
	return model.OptionGroup{
		ID:        id,
		Name:      name,
		InputType: model.InputSelect,
		Required:  s.filled == rows,
		Values:    values,
	}
}

// Catalog is the slice of service.ProductService the import writes through.
type Catalog interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	CreateProduct(ctx context.Context, input service.CreateProductInput) (*model.Product, error)
	SaveOptions(ctx context.Context, id string, groups []model.OptionGroup, variants []model.Variant) (*service.ProductOptions, error)
}

type Options struct {
	SkipExisting bool
	// Inactive imports products hidden from the storefront.
	Inactive bool
}

type Result struct {
	Created  int        `json:"created"`
	Skipped  int        `json:"skipped"`
	Variants int        `json:"variants"`
	Errors   []RowError `json:"errors"`
}

// Import creates one product per legacy product. A product that fails
// validation is reported against its first line and the import continues.
func Import(ctx context.Context, cat Catalog, products []LegacyProduct, opts Options) (*Result, error) {
	log := logger.From(ctx)
	res := &Result{}

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		firstLine := p.Rows[0].Line

		if opts.SkipExisting {
			exists, err := productExists(ctx, cat, p)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped++
				continue
			}
		}

		groups, variants, rowErrs := BuildOptions(p)
		res.Errors = append(res.Errors, rowErrs...)

		active := !opts.Inactive
		created, err := cat.CreateProduct(ctx, service.CreateProductInput{
			Title:     p.Title,
			Brand:     p.Brand,
			Condition: p.Condition,
			Price:     p.Rows[0].Price,
			IsActive:  &active,
		})
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: firstLine, Reason: err.Error()})
			continue
		}

		saved, err := cat.SaveOptions(ctx, created.ID, groups, variants)
		if err != nil {
			// the product exists with its default variant; report and move on
			log.Warn("Legacy options rejected", map[string]interface{}{
				"product_id": created.ID,
				"title":      p.Title,
				"error":      err.Error(),
			})
			res.Errors = append(res.Errors, RowError{Line: firstLine, Reason: err.Error()})
			continue
		}

		res.Created++
		res.Variants += len(saved.Variants)
	}

	log.Info("Legacy import finished", map[string]interface{}{
		"created":  res.Created,
		"skipped":  res.Skipped,
		"variants": res.Variants,
		"errors":   len(res.Errors),
	})
	return res, nil
}

func productExists(ctx context.Context, cat Catalog, p LegacyProduct) (bool, error) {
	found, err := cat.ListProducts(ctx, repository.ProductFilter{Search: p.Title})
	if err != nil {
		return false, err
	}
	for _, existing := range found {
		if strings.EqualFold(existing.Title, p.Title) && strings.EqualFold(existing.Brand, p.Brand) &&
			existing.Condition == p.Condition {
			return true, nil
		}
	}
	return false, nil
}
