package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// UserBuilder provides a fluent interface for creating test users
type UserBuilder struct {
	user   domain.User
	testDB *TestDatabase
	t      *testing.T
}

func (tdb *TestDatabase) NewUser(t *testing.T) *UserBuilder {
	return &UserBuilder{
		user: domain.User{
			ID:       uuid.New(),
			Email:    uuid.NewString() + "@example.com",
			Role:     domain.RoleStudent,
			IsActive: true,
		},
		testDB: tdb,
		t:      t,
	}
}

func (ub *UserBuilder) WithEmail(email string) *UserBuilder {
	ub.user.Email = email
	return ub
}

func (ub *UserBuilder) WithRole(role domain.Role) *UserBuilder {
	ub.user.Role = role
	return ub
}

func (ub *UserBuilder) AsMemberOf(serviceID uuid.UUID) *UserBuilder {
	ub.user.Role = domain.RoleServiceMember
	ub.user.ServiceID = &serviceID
	return ub
}

func (ub *UserBuilder) Inactive() *UserBuilder {
	ub.user.IsActive = false
	return ub
}

func (ub *UserBuilder) Create() *domain.User {
	err := ub.testDB.Store().CreateUser(context.Background(), &ub.user)
	require.NoError(ub.t, err, "Failed to create user")
	return &ub.user
}

// ServiceBuilder provides a fluent interface for creating test services
type ServiceBuilder struct {
	service domain.Service
	testDB  *TestDatabase
	t       *testing.T
}

func (tdb *TestDatabase) NewService(t *testing.T) *ServiceBuilder {
	return &ServiceBuilder{
		service: domain.Service{
			ID:       uuid.New(),
			Name:     "Service " + uuid.NewString()[:8],
			HeadID:   uuid.New(),
			IsActive: true,
		},
		testDB: tdb,
		t:      t,
	}
}

func (sb *ServiceBuilder) WithName(name string) *ServiceBuilder {
	sb.service.Name = name
	return sb
}

func (sb *ServiceBuilder) WithHead(headID uuid.UUID) *ServiceBuilder {
	sb.service.HeadID = headID
	return sb
}

func (sb *ServiceBuilder) Create() *domain.Service {
	err := sb.testDB.Store().CreateService(context.Background(), &sb.service)
	require.NoError(sb.t, err, "Failed to create service")
	return &sb.service
}

// RequestTypeBuilder provides a fluent interface for creating catalog entries
type RequestTypeBuilder struct {
	rt     domain.RequestType
	testDB *TestDatabase
	t      *testing.T
}

func (tdb *TestDatabase) NewRequestType(t *testing.T) *RequestTypeBuilder {
	return &RequestTypeBuilder{
		rt: domain.RequestType{
			ID:       uuid.New(),
			Title:    "Test Request Type",
			Category: "general",
			IsActive: true,
		},
		testDB: tdb,
		t:      t,
	}
}

func (rb *RequestTypeBuilder) WithTitle(title string) *RequestTypeBuilder {
	rb.rt.Title = title
	return rb
}

func (rb *RequestTypeBuilder) WithWorkflow(serviceIDs ...uuid.UUID) *RequestTypeBuilder {
	rb.rt.Workflow = serviceIDs
	return rb
}

func (rb *RequestTypeBuilder) WithRequiredField(name string, ft domain.FieldType) *RequestTypeBuilder {
	rb.rt.RequiredFields = append(rb.rt.RequiredFields, domain.FieldSpec{
		Name:  name,
		Label: name,
		Type:  ft,
	})
	return rb
}

func (rb *RequestTypeBuilder) Create() *domain.RequestType {
	err := rb.testDB.Store().CreateRequestType(context.Background(), &rb.rt)
	require.NoError(rb.t, err, "Failed to create request type")
	return &rb.rt
}

// ResourceBuilder provides a fluent interface for creating test resources
type ResourceBuilder struct {
	resource domain.Resource
	testDB   *TestDatabase
	t        *testing.T
}

func (tdb *TestDatabase) NewResource(t *testing.T) *ResourceBuilder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &ResourceBuilder{
		resource: domain.Resource{
			ID:        uuid.New(),
			Name:      "Test Resource",
			Category:  "room",
			Capacity:  10,
			Status:    domain.ResourceAvailable,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		testDB: tdb,
		t:      t,
	}
}

func (rb *ResourceBuilder) WithName(name string) *ResourceBuilder {
	rb.resource.Name = name
	return rb
}

func (rb *ResourceBuilder) WithCategory(category string) *ResourceBuilder {
	rb.resource.Category = category
	return rb
}

func (rb *ResourceBuilder) Create() *domain.Resource {
	err := rb.testDB.Store().CreateResource(context.Background(), &rb.resource)
	require.NoError(rb.t, err, "Failed to create resource")
	return &rb.resource
}
