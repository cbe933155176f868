package notifications

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/queue"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	emails []queue.EmailDeliveryPayload
}

func (f *fakeQueue) Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error) {
	if taskType == queue.TypeEmailDelivery {
		f.emails = append(f.emails, data.(queue.EmailDeliveryPayload))
	}
	return &asynq.TaskInfo{}, nil
}

type fixture struct {
	dispatcher *Dispatcher
	queue      *fakeQueue
	store      *store.Memory

	service   *domain.Service
	head      *domain.User
	requester *domain.User
	reqType   *domain.RequestType
	resource  *domain.Resource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	f := &fixture{store: mem, queue: &fakeQueue{}}

	f.head = &domain.User{
		ID:          uuid.New(),
		Email:       "head@campusdesk.ca",
		DisplayName: "Dana Head",
		Role:        domain.RoleServiceHead,
		IsActive:    true,
	}
	f.service = &domain.Service{ID: uuid.New(), Name: "Registrar", HeadID: f.head.ID, IsActive: true}
	f.head.ServiceID = &f.service.ID
	f.requester = &domain.User{
		ID:          uuid.New(),
		Email:       "sam@campusdesk.ca",
		DisplayName: "Sam Student",
		Role:        domain.RoleStudent,
		IsActive:    true,
	}
	f.reqType = &domain.RequestType{
		ID:       uuid.New(),
		Title:    "Transcript Copy",
		Category: "records",
		Workflow: []uuid.UUID{f.service.ID},
		IsActive: true,
	}
	f.resource = &domain.Resource{
		ID:       uuid.New(),
		Name:     "Projector A",
		Category: "equipment",
		Status:   domain.ResourceAvailable,
		IsActive: true,
	}

	require.NoError(t, mem.CreateUser(ctx, f.head))
	require.NoError(t, mem.CreateUser(ctx, f.requester))
	require.NoError(t, mem.CreateService(ctx, f.service))
	require.NoError(t, mem.CreateRequestType(ctx, f.reqType))
	require.NoError(t, mem.CreateResource(ctx, f.resource))

	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	f.dispatcher = NewDispatcher(mem, f.queue, tmpl)
	return f
}

func (f *fixture) request() *domain.Request {
	return &domain.Request{
		ID:          uuid.New(),
		TypeID:      f.reqType.ID,
		RequesterID: f.requester.ID,
		Status:      domain.StatusPending,
		Workflow:    []uuid.UUID{f.service.ID},
		CurrentStep: 0,
	}
}

func dispatch(t *testing.T, d *Dispatcher, e events.Event) error {
	t.Helper()
	data, err := json.Marshal(e)
	require.NoError(t, err)
	return d.HandleEvent(context.Background(), e.EventType(), data)
}

func TestDispatcher_RequestCreated(t *testing.T) {
	f := newFixture(t)

	err := dispatch(t, f.dispatcher, events.RequestCreated{Request: f.request()})
	require.NoError(t, err)

	require.Len(t, f.queue.emails, 1)
	mail := f.queue.emails[0]
	assert.Equal(t, f.head.Email, mail.To)
	assert.Contains(t, mail.Subject, "Transcript Copy")
	assert.Contains(t, mail.Body, "Dana Head")
}

func TestDispatcher_RequestResolved(t *testing.T) {
	f := newFixture(t)
	r := f.request()
	r.Status = domain.StatusApproved

	err := dispatch(t, f.dispatcher, events.RequestResolved{Request: r, Status: domain.StatusApproved})
	require.NoError(t, err)

	require.Len(t, f.queue.emails, 1)
	mail := f.queue.emails[0]
	assert.Equal(t, f.requester.Email, mail.To)
	assert.Contains(t, strings.ToLower(mail.Subject), "approved")
}

func TestDispatcher_RequestTransitioned(t *testing.T) {
	f := newFixture(t)

	err := dispatch(t, f.dispatcher, events.RequestTransitioned{
		Request: f.request(),
		Action:  domain.ActionConfirmed,
	})
	require.NoError(t, err)

	// requester and the incoming service head
	require.Len(t, f.queue.emails, 2)
	recipients := []string{f.queue.emails[0].To, f.queue.emails[1].To}
	assert.Contains(t, recipients, f.requester.Email)
	assert.Contains(t, recipients, f.head.Email)
}

func TestDispatcher_BookingEvents(t *testing.T) {
	f := newFixture(t)

	booking := domain.Booking{
		ID:          uuid.New(),
		ResourceID:  f.resource.ID,
		RequesterID: f.requester.ID,
		StartTime:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		Status:      domain.BookingActive,
	}

	t.Run("created sends a confirmation to the requester", func(t *testing.T) {
		f.queue.emails = nil
		require.NoError(t, dispatch(t, f.dispatcher, events.BookingCreated{Booking: booking}))
		require.Len(t, f.queue.emails, 1)
		assert.Equal(t, f.requester.Email, f.queue.emails[0].To)
		assert.Contains(t, f.queue.emails[0].Subject, "Projector A")
	})

	t.Run("cancellation by a manager notifies the requester", func(t *testing.T) {
		f.queue.emails = nil
		cancelled := booking
		cancelled.Status = domain.BookingCancelled
		cancelled.CancelledBy = &f.head.ID
		require.NoError(t, dispatch(t, f.dispatcher, events.BookingCancelled{Booking: cancelled}))
		require.Len(t, f.queue.emails, 1)
	})

	t.Run("own cancellation sends nothing", func(t *testing.T) {
		f.queue.emails = nil
		cancelled := booking
		cancelled.Status = domain.BookingCancelled
		cancelled.CancelledBy = &f.requester.ID
		require.NoError(t, dispatch(t, f.dispatcher, events.BookingCancelled{Booking: cancelled}))
		assert.Empty(t, f.queue.emails)
	})
}

func TestDispatcher_InactiveRecipientSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := &domain.User{ID: uuid.New(), Email: "gone@campusdesk.ca", Role: domain.RoleStudent}
	require.NoError(t, f.store.CreateUser(ctx, inactive))

	r := f.request()
	r.RequesterID = inactive.ID
	err := dispatch(t, f.dispatcher, events.RequestResolved{Request: r, Status: domain.StatusRejected})
	require.NoError(t, err)
	assert.Empty(t, f.queue.emails)
}

func TestDispatcher_UnknownEventDropped(t *testing.T) {
	f := newFixture(t)
	err := f.dispatcher.HandleEvent(context.Background(), "request.renamed", json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.Empty(t, f.queue.emails)
}
