package store

import (
	"context"
	"sync"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
)

// Memory is an in-process Store. Mutations to a given entity are
// serialized on a per-id lock; unrelated entities proceed independently.
// Reads return deep copies so callers never share state with the store.
type Memory struct {
	mu           sync.RWMutex
	requests     map[uuid.UUID]*domain.Request
	resources    map[uuid.UUID]*domain.Resource
	users        map[uuid.UUID]*domain.User
	usersByEmail map[string]uuid.UUID
	services     map[uuid.UUID]*domain.Service
	requestTypes map[uuid.UUID]*domain.RequestType

	locks   map[uuid.UUID]*sync.Mutex
	locksMu sync.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		requests:     make(map[uuid.UUID]*domain.Request),
		resources:    make(map[uuid.UUID]*domain.Resource),
		users:        make(map[uuid.UUID]*domain.User),
		usersByEmail: make(map[string]uuid.UUID),
		services:     make(map[uuid.UUID]*domain.Service),
		requestTypes: make(map[uuid.UUID]*domain.RequestType),
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

// entityLock returns the mutex dedicated to one entity id.
func (m *Memory) entityLock(id uuid.UUID) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Memory) CreateRequest(_ context.Context, r *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[r.ID]; exists {
		return domain.NewError(domain.KindInvalidState, "request %s already exists", r.ID)
	}
	m.requests[r.ID] = r.Clone()
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id uuid.UUID) (*domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, domain.NotFoundError("request")
	}
	return r.Clone(), nil
}

// UpdateRequest applies fn to a working copy under the request's entity
// lock and swaps it in only if fn succeeds. Check-then-act is never split.
func (m *Memory) UpdateRequest(_ context.Context, id uuid.UUID, fn func(*domain.Request) error) (*domain.Request, error) {
	lock := m.entityLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	current, ok := m.requests[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NotFoundError("request")
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests[id] = working
	m.mu.Unlock()
	return working.Clone(), nil
}

func (m *Memory) ListRequests(_ context.Context, filter RequestFilter) ([]*domain.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Request
	for _, r := range m.requests {
		if r.Archived {
			continue
		}
		if filter.RequesterID != nil && r.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.CurrentServiceID != nil && r.CurrentServiceID() != *filter.CurrentServiceID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory) CreateResource(_ context.Context, r *domain.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.resources[r.ID]; exists {
		return domain.NewError(domain.KindInvalidState, "resource %s already exists", r.ID)
	}
	m.resources[r.ID] = r.Clone()
	return nil
}

func (m *Memory) GetResource(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, domain.NotFoundError("resource")
	}
	return r.Clone(), nil
}

func (m *Memory) UpdateResource(_ context.Context, id uuid.UUID, fn func(*domain.Resource) error) (*domain.Resource, error) {
	lock := m.entityLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	current, ok := m.resources[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.NotFoundError("resource")
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.resources[id] = working
	m.mu.Unlock()
	return working.Clone(), nil
}

func (m *Memory) ListResources(_ context.Context) ([]*domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.resources {
		for _, b := range r.Bookings {
			if b.ID == id {
				return b, nil
			}
		}
	}
	return domain.Booking{}, domain.NotFoundError("booking")
}

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usersByEmail[u.Email]; exists {
		return domain.NewError(domain.KindInvalidState, "email %s already registered", u.Email)
	}
	cp := *u
	m.users[u.ID] = &cp
	m.usersByEmail[u.Email] = u.ID
	return nil
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.NotFoundError("user")
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usersByEmail[email]
	if !ok {
		return nil, domain.NotFoundError("user")
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *Memory) CreateService(_ context.Context, s *domain.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *Memory) GetService(_ context.Context, id uuid.UUID) (*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[id]
	if !ok {
		return nil, domain.NotFoundError("service")
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) ListServices(_ context.Context) ([]*domain.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Service, 0, len(m.services))
	for _, s := range m.services {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) CreateRequestType(_ context.Context, rt *domain.RequestType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestTypes[rt.ID] = cloneRequestType(rt)
	return nil
}

func (m *Memory) GetRequestType(_ context.Context, id uuid.UUID) (*domain.RequestType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rt, ok := m.requestTypes[id]
	if !ok {
		return nil, domain.NotFoundError("request type")
	}
	return cloneRequestType(rt), nil
}

func (m *Memory) ListRequestTypes(_ context.Context) ([]*domain.RequestType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RequestType, 0, len(m.requestTypes))
	for _, rt := range m.requestTypes {
		out = append(out, cloneRequestType(rt))
	}
	return out, nil
}

func cloneRequestType(rt *domain.RequestType) *domain.RequestType {
	cp := *rt
	cp.Workflow = append([]uuid.UUID(nil), rt.Workflow...)
	cp.RequiredFields = append([]domain.FieldSpec(nil), rt.RequiredFields...)
	cp.AttachmentKinds = append([]string(nil), rt.AttachmentKinds...)
	return &cp
}
