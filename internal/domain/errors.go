package domain

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateName     = errors.New("duplicate name")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// InsufficientStockError carries the quantity that was actually available.
type InsufficientStockError struct {
	Item      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Item, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Available extracts the available quantity from an insufficient-stock error.
func Available(err error) (int, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Available, true
	}
	return 0, false
}
