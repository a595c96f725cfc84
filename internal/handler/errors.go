package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/vera-store/internal/domain/checkout"
	"github.com/xenking/vera-store/internal/domain/product"
	"github.com/xenking/vera-store/internal/session"
)

// BadRequestError reports a malformed request.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// UnprocessableError reports a well-formed request the storefront cannot act on.
type UnprocessableError struct {
	Message string
}

func (e *UnprocessableError) Error() string {
	return e.Message
}

// apiFunc is an endpoint that reports failures as errors.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) wrap(fn apiFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			code, msg := mapError(err)
			if code >= http.StatusInternalServerError {
				zctx.From(r.Context()).Error("Request failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
			writeError(w, code, msg)
		}
	})
}

// mapError converts domain errors to API status codes and messages.
func mapError(err error) (int, string) {
	var (
		badReq   *BadRequestError
		unproc   *UnprocessableError
		invalid  *product.ValidationError
		fieldErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Message
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, validationMessage(fieldErr)
	case errors.As(err, &unproc):
		return http.StatusUnprocessableEntity, unproc.Message
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "cart is empty"
	case errors.Is(err, checkout.ErrPaymentDeclined):
		return http.StatusPaymentRequired, "payment declined"
	case errors.Is(err, session.ErrCapacity):
		return http.StatusServiceUnavailable, "too many active sessions"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid request"
	}
	fe := errs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
}

// writeError writes the API error body {"code":...,"message":...}.
func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, code, &e)
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
