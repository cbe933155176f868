package rbac

import (
	"testing"

	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func userWithRole(role domain.Role) *domain.User {
	return &domain.User{
		ID:       uuid.New(),
		Email:    "test@campusdesk.ca",
		Role:     role,
		IsActive: true,
	}
}

func TestHasPermission(t *testing.T) {
	t.Run("student cannot approve requests", func(t *testing.T) {
		assert.False(t, HasPermission(userWithRole(domain.RoleStudent), ApproveRequests))
	})

	t.Run("service member can approve requests", func(t *testing.T) {
		assert.True(t, HasPermission(userWithRole(domain.RoleServiceMember), ApproveRequests))
	})

	t.Run("only heads and admins can transfer", func(t *testing.T) {
		assert.True(t, HasPermission(userWithRole(domain.RoleServiceHead), TransferRequests))
		assert.True(t, HasPermission(userWithRole(domain.RoleAdmin), TransferRequests))
		assert.False(t, HasPermission(userWithRole(domain.RoleServiceMember), TransferRequests))
		assert.False(t, HasPermission(userWithRole(domain.RoleTeacher), TransferRequests))
	})

	t.Run("inactive user holds no permissions", func(t *testing.T) {
		u := userWithRole(domain.RoleSuperadmin)
		u.IsActive = false
		assert.False(t, HasPermission(u, ViewAllRequests))
	})

	t.Run("nil user holds no permissions", func(t *testing.T) {
		assert.False(t, HasPermission(nil, ViewOwnRequests))
	})

	t.Run("unknown permission is denied", func(t *testing.T) {
		assert.False(t, HasPermission(userWithRole(domain.RoleSuperadmin), "launch_missiles"))
	})
}

// Every permission the engines check must be granted to at least one
// role, or the corresponding operation would be unreachable.
func TestPermissionTableIsExhaustive(t *testing.T) {
	used := []string{
		ViewAllRequests, ViewServiceRequests, ViewOwnRequests,
		CreateRequests, ConfirmRequests, ApproveRequests, RejectRequests,
		TransferRequests, ManageAllRequests,
		BookResources, ManageResources, ManageReservations, ManageRequestTypes,
	}

	all := AllPermissions()
	for _, p := range used {
		assert.True(t, all[p], "permission %q is granted to no role", p)
	}
}

func TestPermissionsPerRoleAreFixed(t *testing.T) {
	for _, role := range Roles() {
		perms := Permissions(role)
		assert.NotEmpty(t, perms, "role %q has an empty permission set", role)

		// calling again returns the same set
		assert.ElementsMatch(t, perms, Permissions(role))
	}
}

func TestSuperadminHoldsEveryPermission(t *testing.T) {
	u := userWithRole(domain.RoleSuperadmin)
	for p := range AllPermissions() {
		assert.True(t, HasPermission(u, p), "superadmin missing %q", p)
	}
}
