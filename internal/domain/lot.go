package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ParkingLot is the registry entry for a single facility. The occupancy
// counter is owned by the lot repository and only ever mutated through its
// atomic adjust operation.
type ParkingLot struct {
	ID               uuid.UUID `json:"id"`
	VendorLotID      string    `json:"vendor_lot_id"`
	Name             string    `json:"name"`
	Capacity         int       `json:"capacity"`
	CurrentOccupancy int       `json:"current_occupancy"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AvailableSpaces returns the number of free spaces, never negative.
func (l *ParkingLot) AvailableSpaces() int {
	free := l.Capacity - l.CurrentOccupancy
	if free < 0 {
		return 0
	}
	return free
}

// OccupancyPercent returns occupancy as a percentage of capacity (0-100).
func (l *ParkingLot) OccupancyPercent() float64 {
	if l.Capacity <= 0 {
		return 0
	}
	return float64(l.CurrentOccupancy) / float64(l.Capacity) * 100
}

func (l *ParkingLot) Validate() error {
	if l.Name == "" {
		return errors.New("lot name cannot be empty")
	}
	if l.Capacity <= 0 {
		return errors.New("lot capacity must be greater than zero")
	}
	if l.CurrentOccupancy < 0 || l.CurrentOccupancy > l.Capacity {
		return errors.New("lot occupancy must be between zero and capacity")
	}
	return nil
}
