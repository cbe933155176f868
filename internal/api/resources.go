package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/domain"
	"github.com/campusdesk/cd-backend/internal/rbac"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type createResourceBody struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
}

type resourceStatusBody struct {
	Status domain.ResourceStatus `json:"status"`
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.store.ListResources(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"resources": resources})
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	resourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid resource id")
		return
	}

	resource, err := s.store.GetResource(r.Context(), resourceID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resource)
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetAuthenticatedUser(r.Context())
	if !ok || !rbac.HasPermission(user, rbac.ManageResources) {
		writeError(w, http.StatusForbidden, errorBody{Code: CodePermissionDenied, Message: "manage_resources permission required"})
		return
	}

	var body createResourceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" || body.Category == "" {
		badRequest(w, "name and category are required")
		return
	}

	now := time.Now()
	resource := &domain.Resource{
		ID:        uuid.New(),
		Name:      body.Name,
		Category:  body.Category,
		Capacity:  body.Capacity,
		Location:  body.Location,
		Status:    domain.ResourceAvailable,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateResource(r.Context(), resource); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resource)
}

// handleSetResourceStatus is how operators take a resource in and out of
// maintenance. Bookings already on the calendar are left alone.
func (s *Server) handleSetResourceStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.GetAuthenticatedUser(r.Context())
	if !ok || !rbac.HasPermission(user, rbac.ManageResources) {
		writeError(w, http.StatusForbidden, errorBody{Code: CodePermissionDenied, Message: "manage_resources permission required"})
		return
	}

	resourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid resource id")
		return
	}

	var body resourceStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "malformed request body")
		return
	}
	switch body.Status {
	case domain.ResourceAvailable, domain.ResourceMaintenance:
	default:
		badRequest(w, "status must be available or maintenance")
		return
	}

	resource, err := s.store.UpdateResource(r.Context(), resourceID, func(res *domain.Resource) error {
		res.Status = body.Status
		if body.Status == domain.ResourceAvailable {
			res.RecomputeStatus(time.Now())
		}
		res.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resource)
}
