package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Permit types
const (
	PermitMonthly  = "monthly"
	PermitEmployee = "employee"
	PermitVIP      = "vip"
)

// Permit statuses
const (
	PermitActive   = "active"
	PermitInactive = "inactive"
)

var validPermitTypes = map[string]bool{
	PermitMonthly:  true,
	PermitEmployee: true,
	PermitVIP:      true,
}

// Permit is a standing authorization exempting a plate from per-use payment.
// GlobalAccess permits are valid at every lot; otherwise LotID scopes the
// permit. A nil LotID with GlobalAccess=false is the legacy "global" sentinel
// and is honoured at every lot as well.
type Permit struct {
	ID           uuid.UUID  `json:"id"`
	Type         string     `json:"type"`
	LicensePlate string     `json:"license_plate"`
	Status       string     `json:"status"`
	GlobalAccess bool       `json:"global_access"`
	LotID        *uuid.UUID `json:"lot_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidForLot reports whether the permit covers the given lot.
func (p *Permit) ValidForLot(lotID uuid.UUID) bool {
	if p.GlobalAccess || p.LotID == nil {
		return true
	}
	return *p.LotID == lotID
}

// Expired reports whether the permit's expiry has passed at the given time.
// Permits without an expiry never expire.
func (p *Permit) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !p.ExpiresAt.After(now)
}

func (p *Permit) Validate() error {
	if !validPermitTypes[p.Type] {
		return errors.New("permit type must be monthly, employee or vip")
	}
	if p.LicensePlate == "" {
		return errors.New("license plate cannot be empty")
	}
	if p.GlobalAccess && p.LotID != nil {
		return errors.New("global permits cannot be scoped to a lot")
	}
	if !p.GlobalAccess && p.LotID == nil {
		return errors.New("lot-scoped permits require a lot id")
	}
	if p.Type == PermitMonthly && p.ExpiresAt == nil {
		return errors.New("monthly permits require an expiry date")
	}
	return nil
}

func IsValidPermitType(t string) bool {
	return validPermitTypes[t]
}
