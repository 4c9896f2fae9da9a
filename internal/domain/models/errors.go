package models

import "errors"

// Sentinel errors for the inventory core. Handlers translate these to HTTP
// statuses; services wrap them with context but never replace them.
var (
	// Validation
	ErrInvalidQuantity = errors.New("inventory: invalid quantity")
	ErrInvalidKind     = errors.New("inventory: invalid event kind")
	ErrProductNotFound = errors.New("inventory: product not found")
	ErrUnknownTenant   = errors.New("inventory: unknown tenant")

	// Audit sessions
	ErrSessionNotFound  = errors.New("inventory: audit session not found")
	ErrAlreadyInSession = errors.New("inventory: worker already counting in another session")
	ErrUnknownBarcode   = errors.New("inventory: barcode matches no product")
	ErrForbidden        = errors.New("inventory: forbidden")
)
