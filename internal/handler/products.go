package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/product"
)

// ListCategories returns the category tabs, "All" first.
func (h *Handler) ListCategories(w http.ResponseWriter, _ *http.Request) error {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, c := range product.FilterCategories() {
			e.Str(string(c))
		}
	})
	writeJSON(w, http.StatusOK, &e)
	return nil
}

// ListProducts filters the catalogue by the category, view and q query
// parameters without touching any session.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	f, err := parseFilter(q.Get("category"), q.Get("view"), q.Get("q"))
	if err != nil {
		return err
	}
	limit, err := h.limit(r)
	if err != nil {
		return err
	}

	v := catalog.Page(h.products.Filter(f), limit)
	var e jx.Encoder
	encodeView(&e, f, v, h.resolveImages(r.Context(), v.Items))
	writeJSON(w, http.StatusOK, &e)
	return nil
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return badRequest("invalid product id %q", r.PathValue("id"))
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		return errors.Wrapf(err, "get product %d", id)
	}

	var e jx.Encoder
	encodeProduct(&e, *p, h.images.Resolve(r.Context(), *p))
	writeJSON(w, http.StatusOK, &e)
	return nil
}

// parseFilter builds a filter from raw category, view mode and search text.
// Empty values select All.
func parseFilter(category, view, query string) (catalog.Filter, error) {
	c, err := product.ParseCategory(category)
	if err != nil {
		return catalog.Filter{}, err
	}
	v, err := product.ParseViewMode(view)
	if err != nil {
		return catalog.Filter{}, err
	}
	return catalog.Filter{Category: c, View: v, Query: query}, nil
}

// limit reads the optional limit query parameter.
func (h *Handler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.pageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > h.maxPageSize {
		return 0, badRequest("limit must be an integer between 1 and %d", h.maxPageSize)
	}
	return n, nil
}
