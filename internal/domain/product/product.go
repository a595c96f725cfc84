package product

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category groups products on the storefront's filter bar.
type Category string

const (
	// CategoryAll is the filter pseudo-category; no product carries it.
	CategoryAll        Category = "All"
	CategoryLivingRoom Category = "Living Room"
	CategoryBedroom    Category = "Bedroom"
	CategoryOffice     Category = "Office"
	CategoryDining     Category = "Dining"
	CategoryDecor      Category = "Decor"
)

var categories = []Category{
	CategoryLivingRoom,
	CategoryBedroom,
	CategoryOffice,
	CategoryDining,
	CategoryDecor,
}

// Categories returns the real product categories in display order.
func Categories() []Category {
	return slices.Clone(categories)
}

// FilterCategories returns the filter bar entries: All followed by every real
// category.
func FilterCategories() []Category {
	return append([]Category{CategoryAll}, categories...)
}

// IsReal reports whether c is a category a product can belong to.
func (c Category) IsReal() bool {
	return slices.Contains(categories, c)
}

// ParseCategory matches s case-insensitively against the filter categories.
// An empty string selects CategoryAll.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryAll, nil
	}
	for _, c := range FilterCategories() {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", s)}
}

// ViewMode selects a top-level collection of the catalogue.
type ViewMode string

const (
	ViewAll    ViewMode = "All"
	ViewNew    ViewMode = "New"
	ViewSummer ViewMode = "Summer"
)

// Label returns the navigation label shown for the view mode.
func (v ViewMode) Label() string {
	switch v {
	case ViewNew:
		return "New Arrivals"
	case ViewSummer:
		return "Collections"
	default:
		return "Shop All"
	}
}

// ParseViewMode matches s case-insensitively. An empty string selects ViewAll.
func ParseViewMode(s string) (ViewMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ViewAll, nil
	}
	for _, v := range []ViewMode{ViewAll, ViewNew, ViewSummer} {
		if strings.EqualFold(string(v), s) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "view", Reason: fmt.Sprintf("unknown view mode %q", s)}
}

// Product represents a catalogue item. Products are immutable once the
// catalogue has been generated.
type Product struct {
	ID       int
	Category Category
	Name     string
	Price    decimal.Decimal
	Rating   decimal.Decimal
	IsNew    bool
	IsSummer bool
	ImageRef string
}

var maxRating = decimal.NewFromInt(5)

// ValidationError describes a field that failed construction checks.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the record invariants of p.
func (p Product) Validate() error {
	switch {
	case p.ID <= 0:
		return &ValidationError{Field: "id", Reason: "must be positive"}
	case !p.Category.IsReal():
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("%q is not a product category", p.Category)}
	case p.Name == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case p.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating):
		return &ValidationError{Field: "rating", Reason: "must be within [0, 5]"}
	}
	return nil
}

// Repository defines read operations for the product catalogue.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int) (*Product, error)
}
