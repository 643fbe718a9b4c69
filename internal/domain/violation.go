package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Violation statuses. Paid and dismissed are terminal for accounting; the
// record itself is kept for audit.
const (
	ViolationIssued    = "issued"
	ViolationOverdue   = "overdue"
	ViolationPaid      = "paid"
	ViolationDismissed = "dismissed"
)

// Violation sources
const (
	ViolationSourceSystem = "system"
	ViolationSourceStaff  = "staff"
)

// Violation is a billable record created when a session closes unpaid or
// when staff issue a citation manually.
type Violation struct {
	ID           uuid.UUID  `json:"id"`
	LicensePlate string     `json:"license_plate"`
	LotID        uuid.UUID  `json:"lot_id"`
	Reason       string     `json:"reason"`
	Amount       float64    `json:"amount"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	PaymentRef   *string    `json:"payment_ref,omitempty"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Settled reports whether the violation has reached a terminal state.
func (v *Violation) Settled() bool {
	return v.Status == ViolationPaid || v.Status == ViolationDismissed
}

// Unpaid reports whether the violation still counts against the plate.
func (v *Violation) Unpaid() bool {
	return v.Status == ViolationIssued || v.Status == ViolationOverdue
}

func (v *Violation) Validate() error {
	if v.LicensePlate == "" {
		return errors.New("license plate cannot be empty")
	}
	if v.Reason == "" {
		return errors.New("violation reason cannot be empty")
	}
	if v.Amount < 0 {
		return errors.New("violation amount cannot be negative")
	}
	return nil
}
