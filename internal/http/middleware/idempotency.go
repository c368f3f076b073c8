// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the idempotency gate for mutating HTTP methods. It
// requires an X-Idempotent-Key header on every non-read request, performs an
// atomic admission check against the idempotency store, replays the stored
// response for keys that already completed, and rejects duplicates that are
// still in flight. Admitted requests have their response captured and
// recorded against the key so later retries can be replayed.
//
// Design goals:
//   - Keep transport concerns (header validation, capture, replay) here.
//   - Decouple persistence via the narrow IdempotencyStore interface.
//   - Admission is a single atomic check-and-mark, never read-then-write:
//     two concurrent requests with the same key cannot both pass the gate.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotentKey is the request header (case-insensitive, as all HTTP
// header names are) that clients use to convey an idempotency key for
// mutating operations. The value is expected to be stable for a given
// semantic operation so retries can be safely deduplicated.
const HeaderIdempotentKey = "X-Idempotent-Key"

// ctxKeyIdemKey stashes the admitted key for downstream handlers.
const ctxKeyIdemKey = "idem.key"

// IdempotencyResult is the outcome of an admission check. Exactly one of the
// following holds: Admitted (the caller owns the key and must produce an
// outcome), Completed (a snapshot exists and should be replayed), or neither
// (a duplicate is still in flight).
type IdempotencyResult struct {
	Admitted       bool
	Completed      bool
	ResponseStatus int
	ResponseBody   []byte
}

// IdempotencyStore is the narrow persistence contract the gate consumes.
// CheckAndMark must be atomic with respect to concurrent calls for the same
// key (e.g. a unique-constraint insert).
type IdempotencyStore interface {
	CheckAndMark(ctx context.Context, key string) (IdempotencyResult, error)
	RecordOutcome(ctx context.Context, key string, status int, body []byte) error
	MarkFailed(ctx context.Context, key string) error
}

// GetIdempotencyKey returns the admitted idempotency key stored in the Gin
// context by IdempotencyGate. The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyGate returns the admission stage.
//
// Per-request state machine:
//   - read method (GET/HEAD/OPTIONS): terminal, passes straight through.
//   - mutating method, header absent: terminal, 400 MISSING_IDEMPOTENT_KEY;
//     no downstream handler runs.
//   - key present, unseen: admitted; the handler runs with its response
//     captured, and the outcome is recorded against the key afterwards
//     (completed with snapshot below 500, failed at 500 and above so a
//     retry can be re-admitted).
//   - key present, completed: the stored response is replayed verbatim.
//   - key present, still pending: 409 DUPLICATE_OPERATION.
//   - store unreachable: 503 IDEMPOTENCY_UNAVAILABLE. Failing closed keeps
//     the at-most-once guarantee when the store cannot be consulted.
func IdempotencyGate(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderIdempotentKey))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"data":    nil,
				"message": "Operation is missing idempotent key",
				"status":  "MISSING_IDEMPOTENT_KEY",
			})
			return
		}

		res, err := store.CheckAndMark(c.Request.Context(), key)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Str("idempotent_key", key).Msg("idempotency admission failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"data":    nil,
				"message": "Idempotency store is unavailable",
				"status":  "IDEMPOTENCY_UNAVAILABLE",
			})
			return
		}

		if !res.Admitted {
			if res.Completed {
				c.Data(res.ResponseStatus, "application/json; charset=utf-8", res.ResponseBody)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"data":    nil,
				"message": "Operation with this idempotent key is already in progress",
				"status":  "DUPLICATE_OPERATION",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)
		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw

		// Recording is deferred so an admitted key always reaches a terminal
		// state, even when the handler panics: the panic marks the key failed
		// and is rethrown for the recovery stage above the gate, and a later
		// retry can be re-admitted. The client may also have gone away by now,
		// so recording runs outside the request's cancellation.
		defer func() {
			rctx := context.WithoutCancel(c.Request.Context())
			if rec := recover(); rec != nil {
				if err := store.MarkFailed(rctx, key); err != nil {
					LoggerFrom(c).Error().Err(err).Str("idempotent_key", key).Msg("mark failed")
				}
				panic(rec)
			}
			status := cw.Status()
			if status >= http.StatusInternalServerError {
				if err := store.MarkFailed(rctx, key); err != nil {
					LoggerFrom(c).Error().Err(err).Str("idempotent_key", key).Msg("mark failed")
				}
				return
			}
			if err := store.RecordOutcome(rctx, key, status, cw.body.Bytes()); err != nil {
				LoggerFrom(c).Error().Err(err).Str("idempotent_key", key).Msg("record outcome")
			}
		}()

		c.Next()
	}
}

// captureWriter tees the response body so the gate can snapshot it for
// replay after the handler completes.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
