// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the body-parsing stage: it enforces the request body
// size ceiling for every method and pre-validates JSON payloads so malformed
// or oversized bodies are rejected before any handler runs. The buffered
// body is restored afterwards so handlers can bind it normally.
package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// BodyParser returns the parsing stage with the given size ceiling in bytes.
//
// Behavior:
//   - Every body is read eagerly under http.MaxBytesReader, regardless of
//     content type: exceeding the ceiling halts with 413 PAYLOAD_TOO_LARGE
//     before any handler runs. A declared Content-Length over the ceiling
//     is rejected without reading at all.
//   - JSON bodies are additionally pre-validated: a syntactically invalid
//     body halts with 400 BAD_REQUEST.
//   - The buffered body is rewound so handlers can bind it normally.
func BodyParser(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"data":    nil,
				"message": "Request body exceeds the allowed size",
				"status":  "PAYLOAD_TOO_LARGE",
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
					"data":    nil,
					"message": "Request body exceeds the allowed size",
					"status":  "PAYLOAD_TOO_LARGE",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"data":    nil,
				"message": "Unable to read request body",
				"status":  "BAD_REQUEST",
			})
			return
		}

		if strings.HasPrefix(c.ContentType(), "application/json") &&
			len(bytes.TrimSpace(buf)) > 0 && !json.Valid(buf) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"data":    nil,
				"message": "Request body is not valid JSON",
				"status":  "BAD_REQUEST",
			})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(buf))
		c.Next()
	}
}
