package services

import "errors"

// Sentinel errors surfaced by the order services. Storage-level conditions
// (not found, duplicate order code) are surfaced via the repositories
// package sentinels and pass through unchanged.
var (
	// ErrEmptyCart is returned when an order is placed with no products.
	ErrEmptyCart = errors.New("no products in the order, please add products to the order")
	// ErrInsufficientStock is returned under the strict stock policy when a
	// unit cannot be reserved. The best-effort policy never returns it.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrForbidden is returned when a user accesses an order they do not own
	// without the admin role.
	ErrForbidden = errors.New("forbidden")
)
