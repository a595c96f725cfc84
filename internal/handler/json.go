package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vera-store/internal/domain/asset"
	"github.com/xenking/vera-store/internal/domain/cart"
	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/checkout"
	"github.com/xenking/vera-store/internal/domain/product"
)

const maxBodyBytes = 64 << 10

// requestBody is a JSON request payload.
type requestBody interface {
	Decode(d *jx.Decoder) error
}

// decode reads r's body into v and validates its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v requestBody) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return errors.Wrap(err, "read body")
	}
	if err := v.Decode(jx.DecodeBytes(data)); err != nil {
		return badRequest("invalid JSON body: %s", err)
	}
	return h.validate.Struct(v)
}

type filterRequest struct {
	Category string `validate:"max=32"`
	View     string `validate:"max=16"`
	Query    string `validate:"max=128"`
}

func (f *filterRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "category":
			f.Category, err = d.Str()
		case "view":
			f.View, err = d.Str()
		case "query":
			f.Query, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

type addItemRequest struct {
	ProductID int `validate:"gt=0"`
}

func (a *addItemRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key != "productId" {
			return d.Skip()
		}
		var err error
		a.ProductID, err = d.Int()
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

type updateItemRequest struct {
	Delta int `validate:"gte=-1000,lte=1000"`
}

func (u *updateItemRequest) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key != "delta" {
			return d.Skip()
		}
		var err error
		u.Delta, err = d.Int()
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// resolveImages resolves display URLs for products in parallel.
func (h *Handler) resolveImages(ctx context.Context, products []product.Product) []string {
	urls := make([]string, len(products))
	var g errgroup.Group
	g.SetLimit(h.resolveConcurrency)
	for i, p := range products {
		g.Go(func() error {
			urls[i] = h.images.Resolve(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

func encodeProduct(e *jx.Encoder, p product.Product, image string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(p.ID) })
		e.Field("category", func(e *jx.Encoder) { e.Str(string(p.Category)) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("rating", func(e *jx.Encoder) { e.Raw([]byte(p.Rating.StringFixed(1))) })
		e.Field("isNew", func(e *jx.Encoder) { e.Bool(p.IsNew) })
		e.Field("isSummer", func(e *jx.Encoder) { e.Bool(p.IsSummer) })
		e.Field("image", func(e *jx.Encoder) { e.Str(image) })
		e.Field("fallbackImage", func(e *jx.Encoder) { e.Str(asset.Fallback(p.ID)) })
	})
}

func encodeFilter(e *jx.Encoder, f catalog.Filter) {
	category, view := f.Category, f.View
	if category == "" {
		category = product.CategoryAll
	}
	if view == "" {
		view = product.ViewAll
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("category", func(e *jx.Encoder) { e.Str(string(category)) })
		e.Field("view", func(e *jx.Encoder) { e.Str(string(view)) })
		e.Field("viewLabel", func(e *jx.Encoder) { e.Str(view.Label()) })
		e.Field("query", func(e *jx.Encoder) { e.Str(f.Query) })
	})
}

func encodeView(e *jx.Encoder, f catalog.Filter, v catalog.View, images []string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("filter", func(e *jx.Encoder) { encodeFilter(e, f) })
		e.Field("total", func(e *jx.Encoder) { e.Int(v.Total) })
		e.Field("shown", func(e *jx.Encoder) { e.Int(len(v.Items)) })
		e.Field("empty", func(e *jx.Encoder) { e.Bool(v.Empty()) })
		if v.Empty() {
			e.Field("message", func(e *jx.Encoder) { e.Str(catalog.EmptyMessage) })
		}
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i, p := range v.Items {
					encodeProduct(e, p, images[i])
				}
			})
		})
	})
}

func encodeCart(e *jx.Encoder, c cart.Cart, images []string) {
	lines := c.Lines()
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i, l := range lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("index", func(e *jx.Encoder) { e.Int(i) })
						e.Field("product", func(e *jx.Encoder) { encodeProduct(e, l.Product, images[i]) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("total", func(e *jx.Encoder) { encodeMoney(e, l.Total()) })
					})
				}
			})
		})
		e.Field("totalItems", func(e *jx.Encoder) { e.Int(c.TotalItems()) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, c.Subtotal()) })
	})
}

func encodeConfirmation(e *jx.Encoder, c *checkout.Confirmation) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(c.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range c.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Int(it.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
						e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, it.UnitPrice) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("total", func(e *jx.Encoder) { encodeMoney(e, it.Total) })
					})
				}
			})
		})
		e.Field("itemCount", func(e *jx.Encoder) { e.Int(c.ItemCount) })
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, c.Subtotal) })
		e.Field("shipping", func(e *jx.Encoder) { encodeMoney(e, c.Shipping) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, c.Total) })
		e.Field("message", func(e *jx.Encoder) { e.Str(c.Message) })
		e.Field("completedAt", func(e *jx.Encoder) { e.Str(c.CompletedAt.UTC().Format(time.RFC3339)) })
	})
}
