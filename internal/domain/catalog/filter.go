package catalog

import (
	"strings"

	"github.com/xenking/vera-store/internal/domain/product"
)

const (
	// DefaultPageSize is the number of products the storefront grid shows.
	DefaultPageSize = 48

	// EmptyMessage is shown when a filter matches nothing.
	EmptyMessage = "No pieces found"
)

// Filter is the storefront's filter state. Empty Category and View fields
// behave as All.
type Filter struct {
	Category product.Category
	View     product.ViewMode
	Query    string
}

// DefaultFilter matches the whole catalogue.
func DefaultFilter() Filter {
	return Filter{Category: product.CategoryAll, View: product.ViewAll}
}

// Matches reports whether p satisfies the category, search and view
// predicates of f.
func (f Filter) Matches(p product.Product) bool {
	if f.Category != product.CategoryAll && f.Category != "" && p.Category != f.Category {
		return false
	}
	if q := normalizeQuery(f.Query); q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
		return false
	}
	switch f.View {
	case product.ViewNew:
		return p.IsNew
	case product.ViewSummer:
		return p.IsSummer
	default:
		return true
	}
}

// Apply returns the products matching f in their original order.
func Apply(products []product.Product, f Filter) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func normalizeQuery(q string) string {
	return strings.ToLower(q)
}

// View is a display page of a filter result.
type View struct {
	// Total is the untruncated number of matches.
	Total int
	// Items holds at most the page limit of matches.
	Items []product.Product
}

// Empty reports whether the filter matched nothing.
func (v View) Empty() bool {
	return v.Total == 0
}

// Page truncates matches to the first limit entries while keeping the total.
// A non-positive limit selects DefaultPageSize.
func Page(matches []product.Product, limit int) View {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	items := matches
	if len(items) > limit {
		items = items[:limit]
	}
	return View{Total: len(matches), Items: items}
}
