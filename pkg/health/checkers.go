package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than limit goroutines are running.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("goroutine count %d exceeds %d", n, limit)
		}
		return nil
	}
}

// MinCountCheck fails while count() reports fewer than want items. It backs
// the "catalog" readiness check.
func MinCountCheck(what string, want int, count func() int) CheckFunc {
	return func(context.Context) error {
		if n := count(); n < want {
			return errors.Errorf("%s has %d items, want at least %d", what, n, want)
		}
		return nil
	}
}

// CapacityCheck fails when used() has reached limit. A limit of zero or less
// disables the check.
func CapacityCheck(what string, limit int, used func() int) CheckFunc {
	return func(context.Context) error {
		if limit <= 0 {
			return nil
		}
		if n := used(); n >= limit {
			return errors.Errorf("%s at capacity (%d/%d)", what, n, limit)
		}
		return nil
	}
}
