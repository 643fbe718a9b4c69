package notify

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the session pipeline.
const (
	TypeHighOccupancy   = "high_occupancy"
	TypeViolationIssued = "violation_issued"
	TypeUnpaidExit      = "unpaid_exit"
)

const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

// Notification is one operator-facing message. Persisted for the dashboard
// feed and optionally pushed to subscribed endpoints.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Urgency   string     `json:"urgency"`
	LotID     *uuid.UUID `json:"lot_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Endpoint is an external receiver subscribed to notification types.
type Endpoint struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Secret          string     `json:"-"`
	Events          []string   `json:"events"`
	Enabled         bool       `json:"enabled"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Job is a queued redelivery attempt for a notification that failed to push.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	EndpointID  uuid.UUID  `json:"endpoint_id"`
	EventType   string     `json:"event_type"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	Status      string     `json:"status"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EventPayload is the body pushed to endpoints.
type EventPayload struct {
	Type         string       `json:"type"`
	Notification Notification `json:"notification"`
	Timestamp    time.Time    `json:"timestamp"`
}
