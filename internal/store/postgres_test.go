package store_test

import (
	"context"
	"flag"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/campusdesk/cd-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sharedDB *testutil.TestDatabase

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	t := &testing.T{}
	sharedDB = testutil.NewTestDatabase(t)
	sharedDB.RunMigrations(t)

	code := m.Run()

	if sharedDB.Pool() != nil {
		sharedDB.Pool().Close()
	}

	os.Exit(code)
}

func filterRequester(id uuid.UUID) store.RequestFilter {
	return store.RequestFilter{RequesterID: &id}
}

func filterService(id uuid.UUID) store.RequestFilter {
	return store.RequestFilter{CurrentServiceID: &id}
}

func newRequest(requester *domain.User, rt *domain.RequestType) *domain.Request {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Request{
		ID:          uuid.New(),
		TypeID:      rt.ID,
		RequesterID: requester.ID,
		FormData: map[string]domain.FieldValue{
			"reason": {Type: domain.FieldString, Text: "testing"},
		},
		Status:      domain.StatusPending,
		Workflow:    append([]uuid.UUID(nil), rt.Workflow...),
		CurrentStep: 0,
		History: []domain.HistoryEntry{{
			ActorID:   requester.ID,
			Action:    domain.ActionSubmitted,
			ServiceID: rt.Workflow[0],
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgres_RequestRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	svc := sharedDB.NewService(t).Create()
	user := sharedDB.NewUser(t).Create()
	rt := sharedDB.NewRequestType(t).WithWorkflow(svc.ID).Create()

	original := newRequest(user, rt)
	require.NoError(t, st.CreateRequest(ctx, original))

	got, err := st.GetRequest(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Workflow, got.Workflow)
	assert.Equal(t, original.FormData, got.FormData)
	require.Len(t, got.History, 1)
	assert.Equal(t, domain.ActionSubmitted, got.History[0].Action)

	_, err = st.GetRequest(ctx, uuid.New())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestPostgres_UpdateRequestIsAllOrNothing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	svc := sharedDB.NewService(t).Create()
	user := sharedDB.NewUser(t).Create()
	rt := sharedDB.NewRequestType(t).WithWorkflow(svc.ID).Create()

	req := newRequest(user, rt)
	require.NoError(t, st.CreateRequest(ctx, req))

	_, err := st.UpdateRequest(ctx, req.ID, func(r *domain.Request) error {
		r.Status = domain.StatusApproved
		r.History = nil
		return domain.InvalidStateError("nope")
	})
	require.True(t, domain.IsKind(err, domain.KindInvalidState))

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Len(t, got.History, 1)
}

func TestPostgres_UpdateRequestSerializes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	svc := sharedDB.NewService(t).Create()
	user := sharedDB.NewUser(t).Create()
	rt := sharedDB.NewRequestType(t).WithWorkflow(svc.ID).Create()

	req := newRequest(user, rt)
	require.NoError(t, st.CreateRequest(ctx, req))

	const writers = 10
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := st.UpdateRequest(ctx, req.ID, func(r *domain.Request) error {
				r.History = append(r.History, domain.HistoryEntry{
					ActorID:   user.ID,
					Action:    domain.ActionConfirmed,
					ServiceID: svc.ID,
					Timestamp: time.Now().UTC(),
				})
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 1+writers, "row lock must prevent lost history appends")
}

func TestPostgres_ListRequestsFilters(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	svcA := sharedDB.NewService(t).Create()
	svcB := sharedDB.NewService(t).Create()
	alice := sharedDB.NewUser(t).Create()
	bob := sharedDB.NewUser(t).Create()
	rt := sharedDB.NewRequestType(t).WithWorkflow(svcA.ID, svcB.ID).Create()

	reqAlice := newRequest(alice, rt)
	require.NoError(t, st.CreateRequest(ctx, reqAlice))

	reqBob := newRequest(bob, rt)
	reqBob.CurrentStep = 1
	require.NoError(t, st.CreateRequest(ctx, reqBob))

	byRequester, err := st.ListRequests(ctx, filterRequester(alice.ID))
	require.NoError(t, err)
	require.Len(t, byRequester, 1)
	assert.Equal(t, reqAlice.ID, byRequester[0].ID)

	atB, err := st.ListRequests(ctx, filterService(svcB.ID))
	require.NoError(t, err)
	require.Len(t, atB, 1)
	assert.Equal(t, reqBob.ID, atB[0].ID, "queue filter follows workflow->current_step")
}

func TestPostgres_ResourceAndBookings(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	user := sharedDB.NewUser(t).Create()
	resource := sharedDB.NewResource(t).WithName("Auditorium").Create()

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	booking := domain.Booking{
		ID:          uuid.New(),
		ResourceID:  resource.ID,
		RequesterID: user.ID,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Purpose:     "orientation",
		Status:      domain.BookingActive,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := st.UpdateResource(ctx, resource.ID, func(r *domain.Resource) error {
		r.Bookings = append(r.Bookings, booking)
		r.RecomputeStatus(start.Add(-time.Hour))
		return nil
	})
	require.NoError(t, err)

	got, err := st.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	require.Len(t, got.Bookings, 1)
	assert.Equal(t, booking.ID, got.Bookings[0].ID)
	assert.Equal(t, domain.ResourceReserved, got.Status)

	found, err := st.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, resource.ID, found.ResourceID)

	// cancellation flips the flag in place
	_, err = st.UpdateResource(ctx, resource.ID, func(r *domain.Resource) error {
		now := time.Now().UTC().Truncate(time.Microsecond)
		r.Bookings[0].Status = domain.BookingCancelled
		r.Bookings[0].CancelledAt = &now
		r.Bookings[0].CancelledBy = &user.ID
		r.RecomputeStatus(now)
		return nil
	})
	require.NoError(t, err)

	got, err = st.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	require.Len(t, got.Bookings, 1)
	assert.Equal(t, domain.BookingCancelled, got.Bookings[0].Status)
	assert.NotNil(t, got.Bookings[0].CancelledAt)
	assert.Equal(t, domain.ResourceAvailable, got.Status)
}

func TestPostgres_UsersAndServices(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	ctx := context.Background()
	sharedDB.CleanupDatabase(t)
	st := sharedDB.Store()

	svc := sharedDB.NewService(t).WithName("Registrar").Create()
	member := sharedDB.NewUser(t).WithEmail("m@example.com").AsMemberOf(svc.ID).Create()

	byEmail, err := st.GetUserByEmail(ctx, "m@example.com")
	require.NoError(t, err)
	assert.Equal(t, member.ID, byEmail.ID)
	require.NotNil(t, byEmail.ServiceID)
	assert.Equal(t, svc.ID, *byEmail.ServiceID)

	services, err := st.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Registrar", services[0].Name)

	_, err = st.GetUserByEmail(ctx, "ghost@example.com")
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
