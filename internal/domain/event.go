package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vendor event types
const (
	EventEntry = "entry"
	EventExit  = "exit"
	EventAlert = "alert"
)

var validEventTypes = map[string]bool{
	EventEntry: true,
	EventExit:  true,
	EventAlert: true,
}

// IngestionEvent is the persisted record of one vendor LPR delivery.
// The table is append-only: rows are only ever touched again to set
// Processed and to backfill a resolved LotID. Together with the uniqueness
// of (plate, vendor lot, type, event time) this gives webhook idempotency
// and an audit trail.
type IngestionEvent struct {
	ID           uuid.UUID  `json:"id"`
	EventType    string     `json:"event_type"`
	LicensePlate string     `json:"license_plate"`
	VendorLotID  string     `json:"vendor_lot_id"`
	LotID        *uuid.UUID `json:"lot_id,omitempty"`
	EventTime    time.Time  `json:"event_time"`
	Confidence   *float64   `json:"confidence,omitempty"`
	RawPayload   []byte     `json:"-"`
	Processed    bool       `json:"processed"`
	CreatedAt    time.Time  `json:"created_at"`
}

func IsValidEventType(t string) bool {
	return validEventTypes[t]
}
