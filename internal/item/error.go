package item

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidName        = errors.New("invalid item name")
	ErrInvalidDescription = errors.New("invalid item description")
	ErrInvalidPrice       = errors.New("invalid item price")
	ErrInvalidAmount      = errors.New("invalid item amount")
	ErrNameTaken          = errors.New("item name already exists")

	// -- Resource State --
	ErrItemNotFound = errors.New("item not found")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)

// IsValidation reports whether err was caused by the client's input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidDescription) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNameTaken)
}
