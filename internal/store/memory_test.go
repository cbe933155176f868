package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest() *domain.Request {
	return &domain.Request{
		ID:          uuid.New(),
		TypeID:      uuid.New(),
		RequesterID: uuid.New(),
		FormData:    map[string]domain.FieldValue{},
		Status:      domain.StatusPending,
		Workflow:    []uuid.UUID{uuid.New(), uuid.New()},
		CreatedAt:   time.Now(),
	}
}

func TestMemory_UpdateRequestIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	req := newTestRequest()
	require.NoError(t, m.CreateRequest(ctx, req))

	boom := errors.New("boom")
	_, err := m.UpdateRequest(ctx, req.ID, func(r *domain.Request) error {
		r.Status = domain.StatusApproved
		r.History = append(r.History, domain.HistoryEntry{Action: domain.ActionApproved})
		return boom
	})
	require.ErrorIs(t, err, boom)

	// failed mutation must not leak
	got, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Empty(t, got.History)
}

func TestMemory_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	req := newTestRequest()
	require.NoError(t, m.CreateRequest(ctx, req))

	first, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	first.Status = domain.StatusRejected
	first.History = append(first.History, domain.HistoryEntry{Action: domain.ActionRejected})

	second, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, second.Status)
	assert.Empty(t, second.History)
}

func TestMemory_UpdateRequestSerializesPerEntity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	req := newTestRequest()
	require.NoError(t, m.CreateRequest(ctx, req))

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := m.UpdateRequest(ctx, req.ID, func(r *domain.Request) error {
				r.History = append(r.History, domain.HistoryEntry{
					Action:    domain.ActionConfirmed,
					Timestamp: time.Now(),
				})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	// every append survived: no lost updates
	assert.Len(t, got.History, workers)
}

func TestMemory_GetBookingFindsAcrossResources(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	booking := domain.Booking{
		ID:        uuid.New(),
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
		Status:    domain.BookingActive,
	}
	res := &domain.Resource{
		ID:       uuid.New(),
		Name:     "Room 101",
		Status:   domain.ResourceAvailable,
		IsActive: true,
		Bookings: []domain.Booking{booking},
	}
	require.NoError(t, m.CreateResource(ctx, res))

	got, err := m.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = m.GetBooking(ctx, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestMemory_ListRequestsFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	svcA := uuid.New()
	requester := uuid.New()

	r1 := newTestRequest()
	r1.RequesterID = requester
	r1.Workflow = []uuid.UUID{svcA}
	require.NoError(t, m.CreateRequest(ctx, r1))

	r2 := newTestRequest()
	require.NoError(t, m.CreateRequest(ctx, r2))

	byRequester, err := m.ListRequests(ctx, RequestFilter{RequesterID: &requester})
	require.NoError(t, err)
	require.Len(t, byRequester, 1)
	assert.Equal(t, r1.ID, byRequester[0].ID)

	byService, err := m.ListRequests(ctx, RequestFilter{CurrentServiceID: &svcA})
	require.NoError(t, err)
	require.Len(t, byService, 1)
	assert.Equal(t, r1.ID, byService[0].ID)
}
