package cart

import (
	"math"
	"slices"

	"github.com/xenking/vera-store/internal/domain/product"
)

// Action is a cart transition. The set of actions is closed.
type Action interface {
	// Name identifies the action in logs and metrics.
	Name() string

	action()
}

// Add puts one unit of Product into the cart.
type Add struct {
	Product product.Product
}

// UpdateQuantity changes the quantity of the line at Index by Delta, never
// going below one. The result saturates at math.MaxInt.
type UpdateQuantity struct {
	Index int
	Delta int
}

// Remove deletes the line at Index.
type Remove struct {
	Index int
}

// Clear empties the cart.
type Clear struct{}

func (Add) Name() string            { return "add" }
func (UpdateQuantity) Name() string { return "update_quantity" }
func (Remove) Name() string         { return "remove" }
func (Clear) Name() string          { return "clear" }

func (Add) action()            {}
func (UpdateQuantity) action() {}
func (Remove) action()         {}
func (Clear) action()          {}

// Reduce applies a to c and returns the resulting cart. Invalid indexes and
// unidentified products leave the cart unchanged; they indicate a stale view
// on the caller's side rather than a failure.
func Reduce(c Cart, a Action) Cart {
	switch a := a.(type) {
	case Add:
		return add(c, a.Product)
	case UpdateQuantity:
		return updateQuantity(c, a.Index, a.Delta)
	case Remove:
		return remove(c, a.Index)
	case Clear:
		return Cart{}
	default:
		return c
	}
}

func add(c Cart, p product.Product) Cart {
	if p.ID <= 0 {
		return c
	}
	if i := c.IndexOf(p.ID); i >= 0 {
		lines := slices.Clone(c.lines)
		lines[i].Quantity = addQuantity(lines[i].Quantity, 1)
		return Cart{lines: lines}
	}
	lines := make([]Line, len(c.lines), len(c.lines)+1)
	copy(lines, c.lines)
	return Cart{lines: append(lines, Line{Product: p, Quantity: 1})}
}

func updateQuantity(c Cart, i, delta int) Cart {
	if i < 0 || i >= len(c.lines) {
		return c
	}
	lines := slices.Clone(c.lines)
	lines[i].Quantity = addQuantity(lines[i].Quantity, delta)
	return Cart{lines: lines}
}

// addQuantity returns q+delta clamped to [1, math.MaxInt]. q is at least one,
// so only a positive delta can overflow.
func addQuantity(q, delta int) int {
	if delta > 0 && q > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(1, q+delta)
}

func remove(c Cart, i int) Cart {
	if i < 0 || i >= len(c.lines) {
		return c
	}
	return Cart{lines: slices.Delete(slices.Clone(c.lines), i, i+1)}
}

// AddToCart is Reduce with an Add action.
func AddToCart(c Cart, p product.Product) Cart {
	return Reduce(c, Add{Product: p})
}

// AdjustQuantity is Reduce with an UpdateQuantity action.
func AdjustQuantity(c Cart, index, delta int) Cart {
	return Reduce(c, UpdateQuantity{Index: index, Delta: delta})
}

// RemoveLine is Reduce with a Remove action.
func RemoveLine(c Cart, index int) Cart {
	return Reduce(c, Remove{Index: index})
}

// ClearCart is Reduce with a Clear action.
func ClearCart(c Cart) Cart {
	return Reduce(c, Clear{})
}
