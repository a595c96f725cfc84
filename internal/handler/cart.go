package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/vera-store/internal/domain/cart"
	"github.com/xenking/vera-store/internal/domain/product"
	"github.com/xenking/vera-store/internal/session"
)

// GetCart returns the session's cart lines and totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	h.writeCart(w, r, sess.Snapshot().Cart)
	return nil
}

// AddItem adds one unit of a catalogue product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	var req addItemRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return &UnprocessableError{Message: fmt.Sprintf("product %d not found", req.ProductID)}
		}
		return errors.Wrapf(err, "get product %d", req.ProductID)
	}

	h.dispatch(w, r, sess, cart.Add{Product: *p})
	return nil
}

// UpdateItem adjusts the quantity of the line at {index} by delta. Quantities
// never drop below one; an unknown index leaves the cart unchanged.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	index, err := lineIndex(r)
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	h.dispatch(w, r, sess, cart.UpdateQuantity{Index: index, Delta: req.Delta})
	return nil
}

// RemoveItem deletes the line at {index}. An unknown index leaves the cart
// unchanged.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	index, err := lineIndex(r)
	if err != nil {
		return err
	}

	h.dispatch(w, r, sess, cart.Remove{Index: index})
	return nil
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	h.dispatch(w, r, sess, cart.Clear{})
	return nil
}

// Checkout completes the purchase and empties the cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}

	conf, err := sess.Checkout(r.Context(), h.checkout)
	if err != nil {
		return errors.Wrap(err, "checkout")
	}
	h.record(r.Context(), "checkout")

	var e jx.Encoder
	encodeConfirmation(&e, conf)
	writeJSON(w, http.StatusOK, &e)
	return nil
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, sess *session.Session, a cart.Action) {
	c := sess.Dispatch(a)
	h.record(r.Context(), a.Name())
	h.writeCart(w, r, c)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, c cart.Cart) {
	lines := c.Lines()
	products := make([]product.Product, len(lines))
	for i, l := range lines {
		products[i] = l.Product
	}

	var e jx.Encoder
	encodeCart(&e, c, h.resolveImages(r.Context(), products))
	writeJSON(w, http.StatusOK, &e)
}

func lineIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid line index %q", raw)
	}
	return i, nil
}
