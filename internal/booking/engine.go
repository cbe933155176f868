package booking

import (
	"context"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/rbac"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
)

// maxAvailabilitySlots bounds the slot grid a single ListAvailability
// call may produce. The frontend asks for a day or a week at 30-60
// minute granularity; anything past this is a malformed query.
const maxAvailabilitySlots = 2000

// Slot is a fixed-width candidate window reported by ListAvailability.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Engine enforces the reservation invariant: for any resource, the set of
// non-cancelled bookings is pairwise non-overlapping at all times. The
// overlap check and the booking append run inside the same entity lock.
type Engine struct {
	store     store.Store
	publisher events.Publisher
	now       func() time.Time
}

func New(s store.Store, p events.Publisher) *Engine {
	return &Engine{store: s, publisher: p, now: time.Now}
}

// ListAvailability slices [rangeStart, rangeEnd) into granularity-wide
// slots against a consistent snapshot of the resource's bookings. A slot
// is unavailable iff it overlaps any non-cancelled booking under the
// half-open interval test.
func (e *Engine) ListAvailability(ctx context.Context, resourceID uuid.UUID, rangeStart, rangeEnd time.Time, granularity time.Duration) ([]Slot, error) {
	if granularity <= 0 {
		return nil, domain.ValidationError("granularity must be positive")
	}
	if !rangeStart.Before(rangeEnd) {
		return nil, domain.ValidationError("range start must precede range end")
	}
	if rangeEnd.Sub(rangeStart)/granularity > maxAvailabilitySlots {
		return nil, domain.ValidationError("range spans more than %d slots at this granularity", maxAvailabilitySlots)
	}

	resource, err := e.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	active := resource.ActiveBookings()

	var slots []Slot
	for start := rangeStart; start.Before(rangeEnd); start = start.Add(granularity) {
		end := start.Add(granularity)
		if end.After(rangeEnd) {
			end = rangeEnd
		}
		slot := Slot{Start: start, End: end, Available: true}
		for _, b := range active {
			if b.Overlaps(start, end) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// CreateBooking reserves [start, end) on a resource. The conflict check
// is re-run inside the resource's entity lock, so two concurrent calls
// for overlapping windows cannot both succeed. On conflict the offending
// bookings are returned on the error.
func (e *Engine) CreateBooking(ctx context.Context, resourceID, requesterID uuid.UUID, start, end time.Time, purpose string) (domain.Booking, error) {
	if !start.Before(end) {
		return domain.Booking{}, domain.ValidationError("booking start must precede end")
	}

	requester, err := e.store.GetUser(ctx, requesterID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !rbac.HasPermission(requester, rbac.BookResources) {
		return domain.Booking{}, domain.UnauthorizedError("user may not book resources")
	}

	booking := domain.Booking{
		ID:          uuid.New(),
		ResourceID:  resourceID,
		RequesterID: requesterID,
		StartTime:   start,
		EndTime:     end,
		Purpose:     purpose,
		Status:      domain.BookingActive,
		CreatedAt:   e.now(),
	}

	_, err = e.store.UpdateResource(ctx, resourceID, func(r *domain.Resource) error {
		if !r.IsActive {
			return domain.InvalidStateError("resource %q is not active", r.Name)
		}
		if r.Status == domain.ResourceMaintenance {
			return domain.InvalidStateError("resource %q is under maintenance", r.Name)
		}

		var conflicts []domain.Booking
		for _, b := range r.Bookings {
			if b.Status == domain.BookingActive && b.Overlaps(start, end) {
				conflicts = append(conflicts, b)
			}
		}
		if len(conflicts) > 0 {
			return &domain.Error{
				Kind:      domain.KindSlotUnavailable,
				Message:   "requested window overlaps existing bookings",
				Conflicts: conflicts,
			}
		}

		r.Bookings = append(r.Bookings, booking)
		r.RecomputeStatus(e.now())
		r.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	logging.Info("booking created",
		"booking_id", booking.ID,
		"resource_id", resourceID,
		"requester_id", requesterID,
		"start", start,
		"end", end)
	e.publisher.Publish(ctx, events.BookingCreated{Booking: booking})
	return booking, nil
}

// CancelBooking flips the booking's status flag; the record is kept for
// audit and the window becomes available again. Only the requester or a
// manage_reservations holder may cancel.
func (e *Engine) CancelBooking(ctx context.Context, actorID, bookingID uuid.UUID) error {
	actor, err := e.store.GetUser(ctx, actorID)
	if err != nil {
		return err
	}

	found, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	var cancelled domain.Booking
	_, err = e.store.UpdateResource(ctx, found.ResourceID, func(r *domain.Resource) error {
		idx := -1
		for i, b := range r.Bookings {
			if b.ID == bookingID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return domain.NotFoundError("booking")
		}
		b := r.Bookings[idx]
		if b.Status == domain.BookingCancelled {
			return domain.InvalidStateError("booking is already cancelled")
		}
		if b.RequesterID != actorID && !rbac.HasPermission(actor, rbac.ManageReservations) {
			return domain.UnauthorizedError("only the requester or a reservation manager may cancel")
		}

		now := e.now()
		b.Status = domain.BookingCancelled
		b.CancelledAt = &now
		b.CancelledBy = &actorID
		r.Bookings[idx] = b
		cancelled = b
		r.RecomputeStatus(now)
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	logging.Info("booking cancelled",
		"booking_id", bookingID,
		"actor_id", actorID)
	e.publisher.Publish(ctx, events.BookingCancelled{Booking: cancelled})
	return nil
}

// ListBookings returns a resource's bookings in append order, cancelled
// records included.
func (e *Engine) ListBookings(ctx context.Context, resourceID uuid.UUID) ([]domain.Booking, error) {
	resource, err := e.store.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return resource.Bookings, nil
}
