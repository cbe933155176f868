package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/booking"
	"github.com/campusdesk/cd-backend/internal/catalog"
	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/campusdesk/cd-backend/internal/workflow"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	tasks []string
}

func (f *fakeQueue) Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, taskType)
	return &asynq.TaskInfo{}, nil
}

type testServer struct {
	handler http.Handler
	jwt     *auth.JWTService
	store   *store.Memory
	queue   *fakeQueue

	svcA    *domain.Service
	svcB    *domain.Service
	reqType *domain.RequestType
	student *domain.User
	memberA *domain.User
	memberB *domain.User
	admin   *domain.User

	resource *domain.Resource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	ts := &testServer{store: mem, queue: &fakeQueue{}}

	headA := uuid.New()
	headB := uuid.New()
	ts.svcA = &domain.Service{ID: uuid.New(), Name: "Student Affairs", HeadID: headA, IsActive: true}
	ts.svcB = &domain.Service{ID: uuid.New(), Name: "Finance Office", HeadID: headB, IsActive: true}

	ts.student = &domain.User{ID: uuid.New(), Email: "student@campusdesk.ca", DisplayName: "Student", Role: domain.RoleStudent, IsActive: true}
	ts.memberA = &domain.User{ID: uuid.New(), Email: "a@campusdesk.ca", Role: domain.RoleServiceMember, ServiceID: &ts.svcA.ID, IsActive: true}
	ts.memberB = &domain.User{ID: uuid.New(), Email: "b@campusdesk.ca", Role: domain.RoleServiceMember, ServiceID: &ts.svcB.ID, IsActive: true}
	ts.admin = &domain.User{ID: uuid.New(), Email: "admin@campusdesk.ca", Role: domain.RoleAdmin, IsActive: true}

	ts.reqType = &domain.RequestType{
		ID:       uuid.New(),
		Title:    "Enrollment Letter",
		Category: "records",
		Workflow: []uuid.UUID{ts.svcA.ID, ts.svcB.ID},
		RequiredFields: []domain.FieldSpec{
			{Name: "reason", Label: "Reason", Type: domain.FieldString},
		},
		IsActive: true,
	}

	ts.resource = &domain.Resource{
		ID:       uuid.New(),
		Name:     "Lecture Hall 1",
		Category: "room",
		Capacity: 80,
		Status:   domain.ResourceAvailable,
		IsActive: true,
	}

	for _, u := range []*domain.User{ts.student, ts.memberA, ts.memberB, ts.admin} {
		require.NoError(t, mem.CreateUser(ctx, u))
	}
	require.NoError(t, mem.CreateService(ctx, ts.svcA))
	require.NoError(t, mem.CreateService(ctx, ts.svcB))
	require.NoError(t, mem.CreateRequestType(ctx, ts.reqType))
	require.NoError(t, mem.CreateResource(ctx, ts.resource))

	jwtSvc, err := auth.NewJWTService([]byte("test-signing-key"), "test-issuer", time.Hour)
	require.NoError(t, err)
	ts.jwt = jwtSvc

	cat := catalog.New(mem)
	wf := workflow.New(mem, cat, events.Nop{})
	bk := booking.New(mem, events.Nop{})

	server := NewServer(mem, wf, bk, cat, nil, ts.queue)
	authenticator := auth.NewAuthenticator(jwtSvc, mem)
	cfg := config.Load()
	ts.handler = server.Router(authenticator, &cfg.CORS)

	return ts
}

func (ts *testServer) do(t *testing.T, as *domain.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		token, err := ts.jwt.GenerateToken(context.Background(), as)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
