package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/vera-store/internal/domain/cart"
)

// ProcessingMessage is the notice shown when checkout completes.
const ProcessingMessage = "Processing securely..."

var (
	// ErrEmptyCart is returned when checkout is attempted with nothing in the cart.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPaymentDeclined is returned when the payment provider refuses a charge.
	ErrPaymentDeclined = errors.New("payment declined")
)

// Item is a purchased cart line as recorded on the confirmation.
type Item struct {
	ProductID int
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Confirmation is returned after a successful checkout. It is not stored.
type Confirmation struct {
	ID          string
	Items       []Item
	ItemCount   int
	Subtotal    decimal.Decimal
	Shipping    decimal.Decimal
	Total       decimal.Decimal
	Message     string
	CompletedAt time.Time
}

// Charge is the request passed to a PaymentProvider.
type Charge struct {
	Reference string
	Amount    decimal.Decimal
	Items     []Item
}

// PaymentProvider is the extension point for a real payment integration.
type PaymentProvider interface {
	Charge(ctx context.Context, c Charge) error
}

// NoopProvider accepts every charge without contacting anything.
type NoopProvider struct{}

// Charge implements PaymentProvider.
func (NoopProvider) Charge(context.Context, Charge) error {
	return nil
}

// Items converts cart lines into confirmation items.
func Items(c cart.Cart) []Item {
	lines := c.Lines()
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			UnitPrice: l.Product.Price,
			Quantity:  l.Quantity,
			Total:     l.Total(),
		}
	}
	return items
}
