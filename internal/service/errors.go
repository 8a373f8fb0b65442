package service

import "errors"

var (
	// ErrDuplicateIdentity is returned when adding an item or customer whose id already exists.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrNotFound is returned for an unknown item, customer or transaction.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity is returned for a negative stock quantity or a
	// non-positive cart quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidPrice is returned when an item is added with a negative price.
	ErrInvalidPrice = errors.New("price must not be negative")

	// ErrInvalidIdentity is returned when an item or customer id is empty.
	ErrInvalidIdentity = errors.New("id must not be empty")

	// ErrStockChanged rejects a conditional restock whose expected quantity
	// no longer matches the quantity on hand.
	ErrStockChanged = errors.New("stock changed since restock was requested")

	// ErrCustomerNotFound aborts a sale before any stock is touched.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrEmptySale means no cart line survived the availability checks.
	ErrEmptySale = errors.New("no valid items in the cart")

	// ErrInsufficientStock is only reported as a skip reason on a cart line.
	ErrInsufficientStock = errors.New("insufficient stock")
)
