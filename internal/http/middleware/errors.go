// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the error-normalizer stage: a boundary that catches
// panics and errors surfaced by later stages or handlers and converts them
// into the uniform {data, message, status} envelope. Internal detail is
// logged server-side; callers only ever see the normalized shape, never a
// stack trace.
package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/noventa/go-user-gateway/internal/repo"
)

// ErrorNormalizer returns the boundary stage. It must sit before the stages
// whose failures it normalizes (body parsing, the idempotency gate, the
// domain handlers) so it observes their outcome on the way out.
//
// Mapping:
//   - panic                 -> 500 INTERNAL_ERROR
//   - repo.ErrPoolExhausted -> 503 SERVER_BUSY (retryable)
//   - anything else in c.Errors with no response written -> 500 INTERNAL_ERROR
func ErrorNormalizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", RequestIDFrom(c)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"data":    nil,
						"message": "Something went wrong",
						"status":  "INTERNAL_ERROR",
					})
					return
				}
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		LoggerFrom(c).Error().Err(err).Msg("request failed")

		switch {
		case errors.Is(err, repo.ErrPoolExhausted):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"data":    nil,
				"message": "Server is busy, please retry shortly",
				"status":  "SERVER_BUSY",
			})
		case errors.Is(err, repo.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"data":    nil,
				"message": "Resource not found",
				"status":  "NOT_FOUND",
			})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"data":    nil,
				"message": "Something went wrong",
				"status":  "INTERNAL_ERROR",
			})
		}
	}
}
