package rbac

import "github.com/campusdesk/cd-backend/internal/domain"

// Permission constants for RBAC checks. The role set is fixed at deploy
// time; the Go table below is the single source of truth, nothing is
// stored in the database.
const (
	ViewAllRequests     = "view_all_requests"     // View every request system-wide
	ViewServiceRequests = "view_service_requests" // View requests routed to own service
	ViewOwnRequests     = "view_own_requests"     // View requests the user submitted

	CreateRequests    = "create_requests"     // Submit new requests
	ConfirmRequests   = "confirm_requests"    // Confirm a step and pass the request on
	ApproveRequests   = "approve_requests"    // Approve at the final workflow step
	RejectRequests    = "reject_requests"     // Reject, including mid-pipeline
	TransferRequests  = "transfer_requests"   // Reroute within the frozen workflow
	ManageAllRequests = "manage_all_requests" // Act on any service's turn

	BookResources      = "book_resources"       // Reserve rooms and equipment
	ManageResources    = "manage_resources"     // CRUD on resources, maintenance flag
	ManageReservations = "manage_reservations"  // Cancel anyone's booking
	ManageRequestTypes = "manage_request_types" // Edit the request type catalog
)

// rolePermissions is the static Role → set<Permission> table. There are
// deliberately no per-user overrides.
var rolePermissions = map[domain.Role]map[string]bool{
	domain.RoleSuperadmin: set(
		ViewAllRequests, ViewServiceRequests, ViewOwnRequests,
		CreateRequests, ConfirmRequests, ApproveRequests, RejectRequests,
		TransferRequests, ManageAllRequests,
		BookResources, ManageResources, ManageReservations, ManageRequestTypes,
	),
	domain.RoleAdmin: set(
		ViewAllRequests, ViewOwnRequests,
		CreateRequests, ConfirmRequests, ApproveRequests, RejectRequests,
		TransferRequests, ManageAllRequests,
		BookResources, ManageResources, ManageReservations, ManageRequestTypes,
	),
	domain.RoleServiceHead: set(
		ViewServiceRequests, ViewOwnRequests,
		CreateRequests, ConfirmRequests, ApproveRequests, RejectRequests,
		TransferRequests,
		BookResources,
	),
	domain.RoleServiceMember: set(
		ViewServiceRequests, ViewOwnRequests,
		CreateRequests, ConfirmRequests, ApproveRequests, RejectRequests,
		BookResources,
	),
	domain.RoleStudent: set(
		ViewOwnRequests, CreateRequests, BookResources,
	),
	domain.RoleTeacher: set(
		ViewOwnRequests, CreateRequests, BookResources,
	),
}

func set(perms ...string) map[string]bool {
	m := make(map[string]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

// HasPermission is a pure lookup over the static table. Inactive users
// hold no permissions.
func HasPermission(user *domain.User, permission string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	return rolePermissions[user.Role][permission]
}

// Permissions returns the permission set for a role, for seeding and
// introspection.
func Permissions(role domain.Role) []string {
	perms := rolePermissions[role]
	out := make([]string, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	return out
}

// AllPermissions returns every permission granted to at least one role.
func AllPermissions() map[string]bool {
	all := make(map[string]bool)
	for _, perms := range rolePermissions {
		for p := range perms {
			all[p] = true
		}
	}
	return all
}

// Roles returns the fixed role set.
func Roles() []domain.Role {
	return []domain.Role{
		domain.RoleSuperadmin,
		domain.RoleAdmin,
		domain.RoleServiceHead,
		domain.RoleServiceMember,
		domain.RoleStudent,
		domain.RoleTeacher,
	}
}
