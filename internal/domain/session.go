package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses. Completed and violation are terminal.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionViolation = "violation"
)

// Payment statuses
const (
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// ParkingSession is one continuous stay for a plate at a lot. At most one
// session per (plate, lot) pair may be active at any time; the constraint is
// enforced at the storage layer.
type ParkingSession struct {
	ID            uuid.UUID  `json:"id"`
	LicensePlate  string     `json:"license_plate"`
	LotID         uuid.UUID  `json:"lot_id"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      *time.Time `json:"exit_time,omitempty"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	Amount        *float64   `json:"amount,omitempty"`
	PaymentRef    *string    `json:"payment_ref,omitempty"`
	EntryEventID  *uuid.UUID `json:"entry_event_id,omitempty"`
	ExitEventID   *uuid.UUID `json:"exit_event_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Open reports whether the session is still active.
func (s *ParkingSession) Open() bool {
	return s.Status == SessionActive
}

// SessionFilter narrows session history queries for the read-model endpoints.
type SessionFilter struct {
	LotID        *uuid.UUID
	LicensePlate string
	Status       string
	From         *time.Time
	To           *time.Time
	Limit        int
}

// LotActiveCount is the per-lot active-session read model row.
type LotActiveCount struct {
	LotID          uuid.UUID `json:"lot_id"`
	ActiveSessions int       `json:"active_sessions"`
}
