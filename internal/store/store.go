package store

import (
	"context"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
)

// RequestFilter narrows ListRequests. Nil members are ignored.
type RequestFilter struct {
	RequesterID      *uuid.UUID
	CurrentServiceID *uuid.UUID
	Status           *domain.RequestStatus
}

// RequestStore persists workflow requests. UpdateRequest runs fn on the
// current state of the request while holding that request's entity lock:
// either fn succeeds and the whole mutation is persisted, or fn's error is
// returned and nothing changes. This is the linearization point for
// workflow transitions.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *domain.Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, fn func(*domain.Request) error) (*domain.Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*domain.Request, error)
}

// ResourceStore persists resources together with their booking lists, so
// UpdateResource covers conflict check and booking append under one
// entity lock. GetBooking resolves a booking id to its full record.
type ResourceStore interface {
	CreateResource(ctx context.Context, r *domain.Resource) error
	GetResource(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	UpdateResource(ctx context.Context, id uuid.UUID, fn func(*domain.Resource) error) (*domain.Resource, error)
	ListResources(ctx context.Context) ([]*domain.Resource, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type ServiceStore interface {
	CreateService(ctx context.Context, s *domain.Service) error
	GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	ListServices(ctx context.Context) ([]*domain.Service, error)
}

type RequestTypeStore interface {
	CreateRequestType(ctx context.Context, rt *domain.RequestType) error
	GetRequestType(ctx context.Context, id uuid.UUID) (*domain.RequestType, error)
	ListRequestTypes(ctx context.Context) ([]*domain.RequestType, error)
}

// Store is the full persistence surface the engines depend on.
type Store interface {
	RequestStore
	ResourceStore
	UserStore
	ServiceStore
	RequestTypeStore
}
