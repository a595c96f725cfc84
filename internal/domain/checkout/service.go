package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/vera-store/internal/domain/cart"
)

const instrumentationName = "github.com/xenking/vera-store/internal/domain/checkout"

// Service completes checkouts. Shipping is complimentary, so the total always
// equals the cart subtotal.
type Service struct {
	payments  PaymentProvider
	tracer    trace.Tracer
	completed metric.Int64Counter
	now       func() time.Time
	newID     func() string
}

// NewService creates a checkout Service that charges through payments.
func NewService(
	payments PaymentProvider,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	completed, err := mp.Meter(instrumentationName).Int64Counter("vera.checkout.completed",
		metric.WithDescription("Number of completed checkouts"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout counter")
	}
	return &Service{
		payments:  payments,
		tracer:    tp.Tracer(instrumentationName),
		completed: completed,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}, nil
}

// Checkout charges the cart contents and returns a confirmation. The caller
// owns the cart and clears it once Checkout succeeds.
func (s *Service) Checkout(ctx context.Context, c cart.Cart) (*Confirmation, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout")
	defer span.End()

	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := Items(c)
	subtotal := c.Subtotal()
	shipping := decimal.Zero
	conf := &Confirmation{
		ID:        s.newID(),
		Items:     items,
		ItemCount: c.TotalItems(),
		Subtotal:  subtotal,
		Shipping:  shipping,
		Total:     subtotal.Add(shipping),
		Message:   ProcessingMessage,
	}
	span.SetAttributes(
		attribute.String("checkout.id", conf.ID),
		attribute.Int("checkout.items", conf.ItemCount),
	)

	if err := s.payments.Charge(ctx, Charge{
		Reference: conf.ID,
		Amount:    conf.Total,
		Items:     items,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge failed")
		return nil, errors.Wrap(err, "charge")
	}

	conf.CompletedAt = s.now()
	s.completed.Add(ctx, 1)
	return conf, nil
}
