package item

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validate normalises in and checks the item constraints.
func Validate(in *ItemInput) error {
	in.Name = strings.TrimSpace(in.Name)

	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(in.Name); n > MaxNameLen {
		return fmt.Errorf("%w: name has %d characters, max %d", ErrInvalidName, n, MaxNameLen)
	}
	if n := utf8.RuneCountInString(in.Description); n > MaxDescriptionLen {
		return fmt.Errorf("%w: description has %d characters, max %d", ErrInvalidDescription, n, MaxDescriptionLen)
	}
	if in.Price < MinPrice {
		return fmt.Errorf("%w: price %d is below minimum %d", ErrInvalidPrice, in.Price, MinPrice)
	}
	if in.Price > MaxPrice {
		return fmt.Errorf("%w: price %d exceeds maximum %d", ErrInvalidPrice, in.Price, MaxPrice)
	}
	if in.Amount != nil && *in.Amount < 0 {
		return fmt.Errorf("%w: amount %d must not be negative", ErrInvalidAmount, *in.Amount)
	}
	if in.Amount != nil && *in.Amount > MaxAmount {
		return fmt.Errorf("%w: amount %d exceeds maximum %d", ErrInvalidAmount, *in.Amount, MaxAmount)
	}
	return nil
}
