// Package handlers defines the HTTP-layer status taxonomy used across all
// API endpoints.
//
// This file centralizes the symbolic status constants carried in the
// `status` field of every response envelope (via the ok()/fail() helpers in
// this package). These values give clients a stable, machine-readable
// taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Values are UPPER_SNAKE_CASE and never change once published.
//   - Generic values (BAD_REQUEST, NOT_FOUND, INTERNAL_ERROR) mirror common
//     HTTP semantics to aid interoperability.
//   - Domain-specific values (MISSING_IDEMPOTENT_KEY, DUPLICATE_OPERATION,
//     DUPLICATE_EMAIL) are reserved for conditions the HTTP status alone
//     cannot convey.
//
// Example response:
//
//	{
//	  "data": null,
//	  "message": "Operation is missing idempotent key",
//	  "status": "MISSING_IDEMPOTENT_KEY"
//	}
package handlers

const (
	StatusSuccess       = "SUCCESS"
	StatusBadRequest    = "BAD_REQUEST"
	StatusNotFound      = "NOT_FOUND"
	StatusRateLimited   = "RATE_LIMITED"
	StatusServerBusy    = "SERVER_BUSY"
	StatusInternalError = "INTERNAL_ERROR"

	// Domain-specific:
	StatusMissingIdempotentKey   = "MISSING_IDEMPOTENT_KEY"
	StatusDuplicateOperation     = "DUPLICATE_OPERATION"
	StatusIdempotencyUnavailable = "IDEMPOTENCY_UNAVAILABLE"
	StatusPayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	StatusDuplicateEmail         = "DUPLICATE_EMAIL"
	StatusMethodNotAllowed       = "METHOD_NOT_ALLOWED"
)
