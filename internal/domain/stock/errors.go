package stock

import "errors"

var (
	ErrItemNotFound    = errors.New("stock item not found")
	ErrItemExists      = errors.New("medicine already exists in stock; update the existing entry")
	ErrNegativeAmount  = errors.New("deduction amount must not be negative")
	ErrInvalidQuantity = errors.New("stock quantity must not be negative")
)
