// Package handler exposes the storefront over HTTP: stateless catalogue
// browsing plus per-session filter, cart and checkout endpoints.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/vera-store/internal/domain/asset"
	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/checkout"
	"github.com/xenking/vera-store/internal/domain/product"
	"github.com/xenking/vera-store/internal/session"
)

const meterName = "github.com/xenking/vera-store/internal/handler"

// Products is the catalogue as seen by the transport.
type Products interface {
	product.Repository
	Filter(f catalog.Filter) []product.Product
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// PageSize caps the number of products in a listing when the request
	// does not ask for a limit. Defaults to catalog.DefaultPageSize.
	PageSize int
	// MaxPageSize caps explicit limits. Defaults to 500.
	MaxPageSize int
	// ResolveConcurrency bounds parallel image resolution per response.
	// Defaults to 8.
	ResolveConcurrency int
}

// Handler serves the storefront API.
type Handler struct {
	products Products
	sessions *session.Store
	checkout *checkout.Service
	images   asset.Resolver
	validate *validator.Validate

	pageSize           int
	maxPageSize        int
	resolveConcurrency int

	cartActions metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products Products,
	sessions *session.Store,
	svc *checkout.Service,
	images asset.Resolver,
	mp metric.MeterProvider,
) (*Handler, error) {
	if cfg.PageSize <= 0 {
		cfg.PageSize = catalog.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 500
	}
	if cfg.ResolveConcurrency <= 0 {
		cfg.ResolveConcurrency = 8
	}

	cartActions, err := mp.Meter(meterName).Int64Counter("vera.cart.actions",
		metric.WithDescription("Cart actions applied to sessions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart actions counter")
	}

	return &Handler{
		products:           products,
		sessions:           sessions,
		checkout:           svc,
		images:             images,
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		pageSize:           cfg.PageSize,
		maxPageSize:        cfg.MaxPageSize,
		resolveConcurrency: cfg.ResolveConcurrency,
		cartActions:        cartActions,
	}, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/categories", h.wrap(h.ListCategories))
	mux.Handle("GET /api/products", h.wrap(h.ListProducts))
	mux.Handle("GET /api/products/{id}", h.wrap(h.GetProduct))

	mux.Handle("POST /api/sessions", h.wrap(h.CreateSession))
	mux.Handle("GET /api/sessions/{id}/view", h.wrap(h.GetView))
	mux.Handle("PUT /api/sessions/{id}/filter", h.wrap(h.SetFilter))

	mux.Handle("GET /api/sessions/{id}/cart", h.wrap(h.GetCart))
	mux.Handle("POST /api/sessions/{id}/cart/items", h.wrap(h.AddItem))
	mux.Handle("PATCH /api/sessions/{id}/cart/items/{index}", h.wrap(h.UpdateItem))
	mux.Handle("DELETE /api/sessions/{id}/cart/items/{index}", h.wrap(h.RemoveItem))
	mux.Handle("DELETE /api/sessions/{id}/cart", h.wrap(h.ClearCart))

	mux.Handle("POST /api/sessions/{id}/checkout", h.wrap(h.Checkout))
}

// session resolves the {id} path value.
func (h *Handler) session(r *http.Request) (*session.Session, error) {
	return h.sessions.Get(r.PathValue("id"))
}

// record counts a cart action that was applied.
func (h *Handler) record(ctx context.Context, action string) {
	h.cartActions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
