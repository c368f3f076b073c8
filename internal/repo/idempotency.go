// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the idempotency store: an atomic
// admission check keyed by the caller-supplied idempotency key, plus outcome
// recording so completed operations can be replayed.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noventa/go-user-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-constraint violation.
var ErrDuplicate = errors.New("duplicate")

// Admission is the result of CheckAndMark. When Admitted is true the caller
// holds the key (status pending) and must record an outcome. When false,
// Record carries the prior state: pending (a duplicate is in flight) or
// completed (the stored response can be replayed).
type Admission struct {
	Admitted bool
	Record   *domain.Idempotency
}

// CheckAndMark atomically admits key or reports its prior state. Admission
// is a unique-constraint INSERT of a pending row, never a read-then-write:
// two concurrent requests with the same key race on the insert and exactly
// one wins. A key left in the failed state by an earlier attempt is
// re-admitted through a guarded UPDATE, which again only one retrier can win.
func CheckAndMark(ctx context.Context, db *gorm.DB, key string) (*Admission, error) {
	rec := &domain.Idempotency{Key: key, Status: domain.IdempotencyPending}
	rec.OnCreate()

	err := db.WithContext(ctx).Create(rec).Error
	if err == nil {
		return &Admission{Admitted: true, Record: rec}, nil
	}
	if !isDuplicate(err) {
		return nil, err
	}

	var existing domain.Idempotency
	if err := db.WithContext(ctx).Where("key = ?", key).First(&existing).Error; err != nil {
		return nil, err
	}

	if existing.Status == domain.IdempotencyFailed {
		res := db.WithContext(ctx).
			Model(&domain.Idempotency{}).
			Where("key = ? AND status = ?", key, domain.IdempotencyFailed).
			Updates(map[string]any{
				"status":     domain.IdempotencyPending,
				"updated_at": time.Now().Unix(),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			existing.Status = domain.IdempotencyPending
			return &Admission{Admitted: true, Record: &existing}, nil
		}
		// Lost the retry race; fall through with the fresh state.
		if err := db.WithContext(ctx).Where("key = ?", key).First(&existing).Error; err != nil {
			return nil, err
		}
	}

	return &Admission{Admitted: false, Record: &existing}, nil
}

// RecordOutcome marks key completed and stores the response snapshot that
// later duplicates will replay. Returns ErrNotFound if the key was never
// admitted.
func RecordOutcome(ctx context.Context, db *gorm.DB, key string, httpStatus int, body []byte) error {
	res := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"status":          domain.IdempotencyCompleted,
			"response_status": httpStatus,
			"response_body":   body,
			"updated_at":      time.Now().Unix(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records that the admitted operation ended in a server error,
// allowing a later retry with the same key to be re-admitted.
func MarkFailed(ctx context.Context, db *gorm.DB, key string) error {
	res := db.WithContext(ctx).
		Model(&domain.Idempotency{}).
		Where("key = ?", key).
		Updates(map[string]any{
			"status":     domain.IdempotencyFailed,
			"updated_at": time.Now().Unix(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicate detects unique-constraint violations across drivers that may
// not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
