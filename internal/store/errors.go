package store

import "errors"

var (
	// ErrPromotionNotFound is returned when no promotion matches the given id
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidDiscount is returned when the discount value is zero or negative
	ErrInvalidDiscount = errors.New("discount must be greater than zero")

	// ErrPercentageOutOfRange is returned when a percentage discount exceeds 100
	ErrPercentageOutOfRange = errors.New("percentage discount cannot exceed 100")

	// ErrNegativeMinPurchase is returned when the minimum purchase amount is negative
	ErrNegativeMinPurchase = errors.New("minimum purchase amount cannot be negative")

	// ErrExpiryNotFuture is returned when the expiry date is not in the future
	ErrExpiryNotFuture = errors.New("expiry date must be in the future")

	// ErrCodeExists is returned by the remote mirror when the backend enforces
	// code uniqueness; the local mutation is never rolled back for it
	ErrCodeExists = errors.New("promotion code already exists")
)
