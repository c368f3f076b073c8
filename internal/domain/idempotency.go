package domain

// Idempotency statuses. A key is marked pending when a request is admitted,
// completed once the response snapshot is stored, and failed when the
// handler produced a server error (failed keys may be re-admitted).
const (
	IdempotencyPending   = 0
	IdempotencyCompleted = 1
	IdempotencyFailed    = 2
)

// Idempotency records the admission state and, once completed, the response
// snapshot for a caller-supplied idempotency key. The unique index on Key is
// what makes CheckAndMark an atomic admission decision: two concurrent
// inserts for the same key cannot both succeed.
type Idempotency struct {
	Record
	Key            string `gorm:"type:varchar(255);not null;uniqueIndex:ux_idempotency_key"`
	Status         int    `gorm:"not null"`
	ResponseStatus int    `gorm:"not null;default:0"`
	ResponseBody   []byte `gorm:"type:bytes"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
