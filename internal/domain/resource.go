package domain

import (
	"time"

	"github.com/google/uuid"
)

type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceReserved    ResourceStatus = "reserved"
	ResourceMaintenance ResourceStatus = "maintenance"
)

type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking occupies [StartTime, EndTime) on a resource. Bookings are
// append-only; cancellation flips Status and keeps the record.
type Booking struct {
	ID          uuid.UUID     `json:"id"`
	ResourceID  uuid.UUID     `json:"resource_id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Purpose     string        `json:"purpose"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CancelledBy *uuid.UUID    `json:"cancelled_by,omitempty"`
}

// Overlaps applies the half-open interval test against [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndTime) && end.After(b.StartTime)
}

// Resource is a bookable entity. Its bookings live with it so that a
// single entity lock covers conflict check and append together.
type Resource struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Capacity  int            `json:"capacity"`
	Location  string         `json:"location"`
	Status    ResourceStatus `json:"status"`
	IsActive  bool           `json:"is_active"`
	Bookings  []Booking      `json:"bookings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ActiveBookings returns the non-cancelled bookings.
func (r *Resource) ActiveBookings() []Booking {
	out := make([]Booking, 0, len(r.Bookings))
	for _, b := range r.Bookings {
		if b.Status == BookingActive {
			out = append(out, b)
		}
	}
	return out
}

// RecomputeStatus derives available/reserved from current and future
// occupancy. Maintenance is only ever set explicitly and is left alone.
func (r *Resource) RecomputeStatus(now time.Time) {
	if r.Status == ResourceMaintenance {
		return
	}
	r.Status = ResourceAvailable
	for _, b := range r.Bookings {
		if b.Status == BookingActive && b.EndTime.After(now) {
			r.Status = ResourceReserved
			return
		}
	}
}

// Clone returns a deep copy including the booking list.
func (r *Resource) Clone() *Resource {
	cp := *r
	cp.Bookings = append([]Booking(nil), r.Bookings...)
	return &cp
}
