// Package domain defines the persistence models shared across the gateway.
// Every persisted entity embeds Record, which carries identity, unix
// timestamps, and the soft-archive flag. Types are mapped with GORM but the
// lifecycle hooks are invoked explicitly by the repository layer rather than
// through GORM callbacks.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle is implemented by every persisted entity. The repository layer
// calls OnCreate exactly once before the first durable write, and OnUpdate
// before every subsequent write.
type Lifecycle interface {
	// OnCreate assigns a fresh identifier and stamps creation/update times.
	// It must never run twice for the same entity.
	OnCreate()
	// OnUpdate refreshes the update timestamp. Safe to call repeatedly.
	OnUpdate()
}

// Record is the embedded base for all persisted entities.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned once by OnCreate and never
//     supplied by callers.
//   - IsArchived: soft-deletion marker; rows are archived, never destroyed.
//   - CreatedAt / UpdatedAt: unix seconds, managed by OnCreate/OnUpdate.
//     GORM's automatic timestamp tracking is disabled so the only writers
//     are the explicit lifecycle calls.
//
// Invariant: CreatedAt <= UpdatedAt for the entire life of the row.
type Record struct {
	ID         string `json:"id"          gorm:"type:char(36);primaryKey"`
	IsArchived bool   `json:"is_archived" gorm:"not null;default:false"`
	CreatedAt  int64  `json:"created_at"  gorm:"not null;autoCreateTime:false"`
	UpdatedAt  int64  `json:"updated_at"  gorm:"not null;autoUpdateTime:false"`
}

// OnCreate assigns a random UUID identifier and sets both timestamps to the
// current unix time (same value for both).
func (r *Record) OnCreate() {
	now := time.Now().Unix()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
}

// OnUpdate sets UpdatedAt to the current unix time. CreatedAt is untouched.
func (r *Record) OnUpdate() {
	r.UpdatedAt = time.Now().Unix()
}
