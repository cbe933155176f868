package events

import (
	"context"

	"github.com/campusdesk/cd-backend/internal/domain"
)

// Domain events emitted after successful mutations. The engines guarantee
// at-least-once emission per mutation; delivery beyond the Publisher is
// the dispatcher's problem.
const (
	TypeRequestCreated      = "request.created"
	TypeRequestTransitioned = "request.transitioned"
	TypeRequestResolved     = "request.resolved"
	TypeBookingCreated      = "booking.created"
	TypeBookingCancelled    = "booking.cancelled"
)

type Event interface {
	EventType() string
}

type RequestCreated struct {
	Request *domain.Request `json:"request"`
}

func (RequestCreated) EventType() string { return TypeRequestCreated }

type RequestTransitioned struct {
	Request  *domain.Request      `json:"request"`
	FromStep int                  `json:"from_step"`
	ToStep   int                  `json:"to_step"`
	Action   domain.HistoryAction `json:"action"`
}

func (RequestTransitioned) EventType() string { return TypeRequestTransitioned }

type RequestResolved struct {
	Request *domain.Request      `json:"request"`
	Status  domain.RequestStatus `json:"status"`
}

func (RequestResolved) EventType() string { return TypeRequestResolved }

type BookingCreated struct {
	Booking domain.Booking `json:"booking"`
}

func (BookingCreated) EventType() string { return TypeBookingCreated }

type BookingCancelled struct {
	Booking domain.Booking `json:"booking"`
}

func (BookingCancelled) EventType() string { return TypeBookingCancelled }

// Publisher hands events to the notification layer. Implementations must
// not block the calling engine; failures are theirs to log and retry.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events. Used in tests and in tools that do not notify.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
