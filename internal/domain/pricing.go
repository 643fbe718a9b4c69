package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const minutesPerDay = 24 * 60

// PricingRule describes one rate window for a lot. Multiple rules may
// overlap; the resolver picks the highest priority and, on a tie, the most
// recently created rule so the outcome is deterministic.
type PricingRule struct {
	ID       uuid.UUID `json:"id"`
	LotID    uuid.UUID `json:"lot_id"`
	Name     string    `json:"name"`
	Weekdays []int     `json:"weekdays"`
	// StartMinute/EndMinute bound the [start,end) time-of-day window in
	// minutes from midnight, local lot time.
	StartMinute int     `json:"start_minute"`
	EndMinute   int     `json:"end_minute"`
	BaseRate    float64 `json:"base_rate"`
	Priority    int     `json:"priority"`

	SurgeActive    bool     `json:"surge_active"`
	SurgeThreshold float64  `json:"surge_threshold"`
	SurgeRate      float64  `json:"surge_rate"`
	MaxRate        *float64 `json:"max_rate,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppliesAt reports whether the rule covers the weekday and time of day of t.
func (r *PricingRule) AppliesAt(t time.Time) bool {
	weekday := int(t.Weekday())
	covered := false
	for _, d := range r.Weekdays {
		if d == weekday {
			covered = true
			break
		}
	}
	if !covered {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	return minute >= r.StartMinute && minute < r.EndMinute
}

func (r *PricingRule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name cannot be empty")
	}
	if len(r.Weekdays) == 0 {
		return errors.New("rule must cover at least one weekday")
	}
	for _, d := range r.Weekdays {
		if d < 0 || d > 6 {
			return errors.New("weekdays must be between 0 (Sunday) and 6 (Saturday)")
		}
	}
	if r.StartMinute < 0 || r.StartMinute >= minutesPerDay {
		return errors.New("start of time window must fall within the day")
	}
	if r.EndMinute <= r.StartMinute || r.EndMinute > minutesPerDay {
		return errors.New("end of time window must come after its start")
	}
	if r.BaseRate < 0 {
		return errors.New("base rate cannot be negative")
	}
	if r.SurgeActive {
		if r.SurgeThreshold <= 0 || r.SurgeThreshold > 100 {
			return errors.New("surge threshold must be an occupancy percentage between 0 and 100")
		}
		if r.SurgeRate < 0 {
			return errors.New("surge rate cannot be negative")
		}
	}
	if r.MaxRate != nil && *r.MaxRate < 0 {
		return errors.New("max rate cannot be negative")
	}
	return nil
}
