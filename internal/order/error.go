package order

import "errors"

var (
	// -- Validation & Input --
	ErrEmptySelection       = errors.New("no items selected")
	ErrMalformedEntry       = errors.New("malformed item entry")
	ErrItemNotFound         = errors.New("item not found")
	ErrQuantityBelowMin     = errors.New("quantity below minimum")
	ErrQuantityOutOfRange   = errors.New("quantity out of range")
	ErrDuplicateItem        = errors.New("duplicate item in request")
	ErrQuantityExceedsStock = errors.New("quantity exceeds available stock")
	ErrInvalidTableNumber   = errors.New("invalid table number")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrItemAlreadyInOrder   = errors.New("item already in order")

	// -- Resource State --
	ErrOrderNotFound    = errors.New("order not found")
	ErrLineItemNotFound = errors.New("line item not found")
)

var validationErrors = []error{
	ErrEmptySelection,
	ErrMalformedEntry,
	ErrItemNotFound,
	ErrQuantityBelowMin,
	ErrQuantityOutOfRange,
	ErrDuplicateItem,
	ErrQuantityExceedsStock,
	ErrInvalidTableNumber,
	ErrInvalidStatus,
	ErrItemAlreadyInOrder,
}

// IsValidation reports whether err was caused by the client's input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
