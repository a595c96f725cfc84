// Package cart implements the shopping cart as a pure reducer: every
// transition takes the current Cart and an Action and returns a new Cart,
// leaving the input untouched.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xenking/vera-store/internal/domain/product"
)

// Line pairs a product with the quantity the shopper wants.
type Line struct {
	Product  product.Product
	Quantity int
}

// Total returns quantity times unit price.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines, at most one per product id. The zero
// value is an empty cart.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() Cart {
	return Cart{}
}

// Lines returns a copy of the lines in insertion order.
func (c Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

// Len returns the number of lines.
func (c Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Line returns the line at index i.
func (c Cart) Line(i int) (Line, bool) {
	if i < 0 || i >= len(c.lines) {
		return Line{}, false
	}
	return c.lines[i], true
}

// IndexOf returns the index of the line holding productID, or -1.
func (c Cart) IndexOf(productID int) int {
	return slices.IndexFunc(c.lines, func(l Line) bool {
		return l.Product.ID == productID
	})
}

// TotalItems returns the sum of line quantities.
func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of quantity times unit price, excluding shipping
// and tax.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}
