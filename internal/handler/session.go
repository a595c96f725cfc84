package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// CreateSession starts a new shopper session with an empty cart and the
// default filter.
func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) error {
	sess, err := h.sessions.Create()
	if err != nil {
		return err
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(sess.ID()) })
	})
	w.Header().Set("Location", "/api/sessions/"+sess.ID()+"/view")
	writeJSON(w, http.StatusCreated, &e)
	return nil
}

// GetView returns the session's filter state and the first page of matches.
func (h *Handler) GetView(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	limit, err := h.limit(r)
	if err != nil {
		return err
	}

	f, v := sess.View(limit)
	var e jx.Encoder
	encodeView(&e, f, v, h.resolveImages(r.Context(), v.Items))
	writeJSON(w, http.StatusOK, &e)
	return nil
}

// SetFilter replaces the session's filter and returns the updated view.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) error {
	sess, err := h.session(r)
	if err != nil {
		return err
	}
	var req filterRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}
	f, err := parseFilter(req.Category, req.View, req.Query)
	if err != nil {
		return err
	}

	sess.SetFilter(f)
	f, v := sess.View(h.pageSize)
	var e jx.Encoder
	encodeView(&e, f, v, h.resolveImages(r.Context(), v.Items))
	writeJSON(w, http.StatusOK, &e)
	return nil
}
