// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all
// endpoints. Every response, success or failure, is wrapped in the same
// three-field envelope so clients can parse results uniformly:
//
//	HTTP/1.1 201 Created
//	{
//	  "data":    { "id": "141add05-...", "name": "Ada", ... },
//	  "message": "User created",
//	  "status":  "SUCCESS"
//	}
//
//	HTTP/1.1 404 Not Found
//	{
//	  "data":    null,
//	  "message": "User not found",
//	  "status":  "NOT_FOUND"
//	}
//
// Conventions:
//   - All failure responses carry one of the Status* constants (see
//     errors.go) as a stable, machine-readable discriminator.
//   - fail() centralizes failure formatting and logs 5xx responses with the
//     request-scoped logger for observability.
//   - ok() writes success envelopes in a consistent shape across handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noventa/go-user-gateway/internal/http/middleware"
)

// Envelope is the uniform response body returned by every endpoint.
type Envelope struct {
	// Data carries the operation result, or null on failure.
	Data any `json:"data"`
	// Message is a human-readable description, safe to show to users.
	Message string `json:"message"`
	// Status is a stable, machine-readable discriminator (see errors.go).
	Status string `json:"status"`
}

// ok writes a success envelope with the given HTTP status.
func ok(c *gin.Context, httpStatus int, data any, msg string) {
	c.JSON(httpStatus, Envelope{Data: data, Message: msg, Status: StatusSuccess})
}

// fail aborts the request with a failure envelope. Server errors (>=500) are
// logged using the request-scoped logger from middleware.
func fail(c *gin.Context, httpStatus int, status, msg string) {
	if httpStatus >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", httpStatus).
			Str("code", status).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(httpStatus, Envelope{Data: nil, Message: msg, Status: status})
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent failure envelopes without depending on unexported helpers.
func Fail(c *gin.Context, httpStatus int, status, msg string) { fail(c, httpStatus, status, msg) }
